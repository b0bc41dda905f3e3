package mms

import (
	"encoding/hex"
	"testing"

	"github.com/slonegd/mmsreportd/internal/mmsvalue"
	"github.com/stretchr/testify/assert"
)

func TestDecodePDUConfirmedResponseRead(t *testing.T) {
	buf, err := hex.DecodeString("a10e020101a409a1078705083da8837c")
	assert.NoError(t, err)

	pdu, err := DecodePDU(buf)
	assert.NoError(t, err)
	assert.Equal(t, PduConfirmedResponse, pdu.Kind)
	assert.EqualValues(t, 1, pdu.InvokeID)
	assert.Len(t, pdu.Results, 1)
	assert.True(t, pdu.Results[0].Success)
}

func TestDecodePDUConfirmedError(t *testing.T) {
	// confirmed-errorPDU { invokeID=1, serviceError { errorClass=access(1), errorCode=3 } }
	buf := []byte{
		0xA2, 0x08,
		0x02, 0x01, 0x01, // invokeID
		0xA1, 0x03, // serviceError
		0x81, 0x01, 0x03, // errorClass choice: [1] 3
	}
	pdu, err := DecodePDU(buf)
	assert.NoError(t, err)
	assert.Equal(t, PduConfirmedError, pdu.Kind)
}

func TestDecodePDURejectsEmptyBuffer(t *testing.T) {
	_, err := DecodePDU(nil)
	assert.Error(t, err)
}

func TestDecodePDUUnconfirmedInformationReport(t *testing.T) {
	// unconfirmed-PDU [3] { informationReport [0] { listOfAccessResult [1] { bool(true) } } }
	accessResult := []byte{0x83, 0x01, 0x01}                                     // bool true
	listOfAccessResult := append([]byte{0xA1, byte(len(accessResult))}, accessResult...)
	informationReport := append([]byte{0xA0, byte(len(listOfAccessResult))}, listOfAccessResult...)
	buf := append([]byte{0xA3, byte(len(informationReport))}, informationReport...)

	pdu, err := DecodePDU(buf)
	assert.NoError(t, err)
	assert.Equal(t, PduInformationReport, pdu.Kind)
	assert.Len(t, pdu.Report.Results, 1)
	assert.True(t, pdu.Report.Results[0].Value.AsBool())
}

func TestValuesExtractsSuccessfulPayloads(t *testing.T) {
	results := []AccessResult{
		{Success: true, Value: mmsvalue.Bool(true)},
		{Success: true, Value: mmsvalue.Bool(false)},
	}
	vs := Values(results)
	assert.Len(t, vs, 2)
	assert.True(t, vs[0].AsBool())
	assert.False(t, vs[1].AsBool())
}
