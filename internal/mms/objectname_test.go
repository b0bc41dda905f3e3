package mms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseObjectName(t *testing.T) {
	n, err := ParseObjectName("LDPHAS1/LLN0.RP.urcbA")
	assert.NoError(t, err)
	assert.Equal(t, ObjectName{Domain: "LDPHAS1", Item: "LLN0.RP.urcbA"}, n)
}

func TestParseObjectNameRejectsMissingSeparator(t *testing.T) {
	_, err := ParseObjectName("LDPHAS1")
	assert.Error(t, err)
}

func TestObjectNameStringRoundTrip(t *testing.T) {
	n := ObjectName{Domain: "LDPHAS1", Item: "LLN0$RP$urcbA"}
	assert.Equal(t, "LDPHAS1/LLN0$RP$urcbA", n.String())
}

func TestEncodeDecodeObjectNameRoundTrip(t *testing.T) {
	want := ObjectName{Domain: "simpleIOGenericIO", Item: "GGIO1$MX$AnIn1$mag$f"}
	buf := make([]byte, 256)
	end := EncodeObjectName(want, buf, 0)

	// EncodeObjectName writes the domain-specific [1] wrapper; strip its
	// tag/length to hand DecodeObjectName the two bare VisibleStrings.
	domainSpecific := buf[2:end]
	got, _, err := DecodeObjectName(domainSpecific)
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}
