package rcb

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/slonegd/mmsreportd/internal/mms"
	"github.com/slonegd/mmsreportd/internal/mmsvalue"
	"github.com/stretchr/testify/assert"
)

type fakeWrite struct {
	Item  string
	Value mmsvalue.Value
}

type fakeAccessor struct {
	rptEnaCurrentlyTrue bool
	failSuffix          string
	failWith            error
	writes              []fakeWrite
}

func (f *fakeAccessor) Read(ctx context.Context, name mms.ObjectName) (mms.AccessResult, error) {
	if strings.HasSuffix(name.Item, "."+AttrRptEna) {
		return mms.AccessResult{Success: true, Value: mmsvalue.Bool(f.rptEnaCurrentlyTrue)}, nil
	}
	return mms.AccessResult{Success: true, Value: mmsvalue.Bool(false)}, nil
}

func (f *fakeAccessor) Write(ctx context.Context, name mms.ObjectName, value mmsvalue.Value) error {
	f.writes = append(f.writes, fakeWrite{Item: name.Item, Value: value})
	if f.failSuffix != "" && strings.HasSuffix(name.Item, f.failSuffix) {
		return f.failWith
	}
	return nil
}

func (f *fakeAccessor) wroteSuffix(suffix string) bool {
	for _, w := range f.writes {
		if strings.HasSuffix(w.Item, suffix) {
			return true
		}
	}
	return false
}

func TestEnableUnbufferedHappyPath(t *testing.T) {
	acc := &fakeAccessor{}
	err := Enable(context.Background(), acc, "LD0", "LLN0.RP.URCB01", DefaultConfig())
	assert.NoError(t, err)

	assert.True(t, acc.wroteSuffix("."+AttrResv))
	assert.True(t, acc.wroteSuffix("."+AttrOptFlds))
	assert.True(t, acc.wroteSuffix("."+AttrTrgOps))
	assert.True(t, acc.wroteSuffix("."+AttrBufTm))
	assert.True(t, acc.wroteSuffix("."+AttrIntgPd))
	assert.True(t, acc.wroteSuffix("."+AttrGI))
	assert.True(t, acc.wroteSuffix("."+AttrRptEna))

	// RptEna:=true must be the very last write.
	last := acc.writes[len(acc.writes)-1]
	assert.True(t, strings.HasSuffix(last.Item, "."+AttrRptEna))
	assert.True(t, last.Value.AsBool())
}

func TestEnableDisablesAlreadyEnabledRcbFirst(t *testing.T) {
	acc := &fakeAccessor{rptEnaCurrentlyTrue: true}
	err := Enable(context.Background(), acc, "LD0", "LLN0.RP.URCB01", DefaultConfig())
	assert.NoError(t, err)

	// First write must be RptEna:=false, to satisfy "disable before reconfigure".
	assert.True(t, strings.HasSuffix(acc.writes[0].Item, "."+AttrRptEna))
	assert.False(t, acc.writes[0].Value.AsBool())
}

func TestEnableFailsAtReserveStopsBeforeEnable(t *testing.T) {
	acc := &fakeAccessor{
		failSuffix: "." + AttrResv,
		failWith:   fmt.Errorf("mms: write failed: %w", mms.ObjectAccessDenied),
	}
	err := Enable(context.Background(), acc, "LD0", "LLN0.RP.URCB01", DefaultConfig())
	assert.Error(t, err)

	var failed *EnableFailedError
	assert.ErrorAs(t, err, &failed)
	assert.Equal(t, StepReserve, failed.Step)

	assert.False(t, acc.wroteSuffix("."+AttrRptEna))
	assert.False(t, acc.wroteSuffix("."+AttrOptFlds))
}

func TestEnableBufferedWritesResvTms(t *testing.T) {
	acc := &fakeAccessor{}
	err := Enable(context.Background(), acc, "LD0", "LLN0.RP.BRCB01", Config{Kind: Buffered, IntegrityPeriodMs: 10000, RequestReservation: true})
	assert.NoError(t, err)
	assert.True(t, acc.wroteSuffix("."+AttrResvTms))
	assert.False(t, acc.wroteSuffix("."+AttrResv))
}

func TestStepStringIsStable(t *testing.T) {
	assert.Equal(t, "reserve", StepReserve.String())
	assert.Equal(t, "enable", StepEnable.String())
}
