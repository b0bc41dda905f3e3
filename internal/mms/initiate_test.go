package mms

import (
	"testing"

	"github.com/slonegd/mmsreportd/internal/ber"
	"github.com/stretchr/testify/assert"
)

func TestDefaultInitiateRequestMatchesNegotiatedProfile(t *testing.T) {
	r := DefaultInitiateRequest()
	assert.EqualValues(t, 65000, r.LocalDetailCalling)
	assert.EqualValues(t, 10, r.ProposedMaxServOutstandingCalling)
	assert.EqualValues(t, 10, r.ProposedMaxServOutstandingCalled)
	assert.EqualValues(t, 5, r.ProposedDataStructureNestingLevel)
	assert.Contains(t, r.ProposedParameterCBB, CbbVadr)
	assert.Contains(t, r.ProposedParameterCBB, CbbTpy)
}

func TestInitiateRequestBytesTagAndFields(t *testing.T) {
	r := NewInitiateRequest()
	buf := r.Bytes()
	assert.Equal(t, byte(tagInitiateRequest), buf[0])

	tlv, err := ber.ReadTLV(buf, 0)
	assert.NoError(t, err)

	localDetail, err := ber.ReadTLV(tlv.Content, 0)
	assert.NoError(t, err)
	assert.Equal(t, byte(0x80), localDetail.Tag)
	assert.EqualValues(t, 65000, ber.DecodeUint32(localDetail.Content, len(localDetail.Content), 0))
}

func TestInitiateRequestOptionOverridesDefault(t *testing.T) {
	r := NewInitiateRequest(WithProposedDataStructureNestingLevel(8))
	assert.EqualValues(t, 8, r.ProposedDataStructureNestingLevel)
}

func TestDecodeInitiateResponseBodyRoundTrip(t *testing.T) {
	r := NewInitiateRequest()
	// Build a minimal response body echoing back the request's negotiated
	// fields, exercising the nested mmsInitResponseDetail decode path.
	content := r.buildContent()
	// Swap the request-side tags (0x80..0x83 top-level + 0xA4 detail) for the
	// response encoding, which reuses the identical tag numbers.
	resp, err := decodeInitiateResponseBody(content)
	assert.NoError(t, err)
	assert.EqualValues(t, 10, resp.NegotiatedMaxServOutstandingCalling)
	assert.EqualValues(t, 10, resp.NegotiatedMaxServOutstandingCalled)
	assert.EqualValues(t, 1, resp.NegotiatedVersionNumber)
	assert.Contains(t, resp.NegotiatedParameterCBB, CbbVadr)
	assert.Contains(t, resp.ServicesSupportedCalled, SvcRead)
}
