package scl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSCL = `<?xml version="1.0" encoding="UTF-8"?>
<SCL xmlns="http://www.iec.ch/61850/2003/SCL">
  <IED name="IED1">
    <AccessPoint name="S1">
      <Server>
        <LDevice inst="LD0">
          <LN0 lnClass="LLN0" inst="">
            <DataSet name="Measurements">
              <FCDA doName="Amp" daName="mag.f"/>
              <FCDA doName="Vol" daName="mag.f"/>
            </DataSet>
          </LN0>
          <LN prefix="" lnClass="MMXU" inst="1">
            <DataSet name="Status">
              <FCDA doName="Health"/>
            </DataSet>
          </LN>
        </LDevice>
      </Server>
    </AccessPoint>
  </IED>
</SCL>`

func writeTempSCL(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.icd")
	require.NoError(t, os.WriteFile(path, []byte(sampleSCL), 0o644))
	return path
}

func TestParseMapsDataSetsToOrderedLabels(t *testing.T) {
	path := writeTempSCL(t)
	labels, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Amp.mag.f", "Vol.mag.f"}, labels["IED1LD0/LLN0$Measurements"])
	assert.Equal(t, []string{"Health"}, labels["IED1LD0/MMXU1$Status"])
}

func TestParseMissingFileReturnsError(t *testing.T) {
	_, err := Parse("/nonexistent/path.icd")
	assert.Error(t, err)
}
