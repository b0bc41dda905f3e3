package mms

import (
	"fmt"
	"strings"

	"github.com/slonegd/mmsreportd/internal/ber"
)

// ObjectName addresses an MMS named variable in domain-specific form:
// domainId (the IED's logical-device name) and itemId (the object reference
// within that domain, using '$' as the hierarchical separator on the wire).
// The textual '/' form used elsewhere in this client (e.g. RCB names read
// from SCL) is split at the '/' by ParseObjectName, and String joins the two
// parts with '/' again; on the wire domain and item are two separate
// VisibleStrings, so no space-joined form is produced.
type ObjectName struct {
	Domain string
	Item   string
}

// ParseObjectName splits a textual reference such as "LD0/LLN0.Report" into
// its domain and item parts. The first '/' is the domain/item boundary; any
// further '/' in the item portion (there should be none past that point) is
// left untouched.
func ParseObjectName(ref string) (ObjectName, error) {
	idx := strings.IndexByte(ref, '/')
	if idx < 0 {
		return ObjectName{}, fmt.Errorf("mms: object reference %q has no domain/item separator", ref)
	}
	return ObjectName{Domain: ref[:idx], Item: ref[idx+1:]}, nil
}

// String renders the object name in the textual domain/item form.
func (n ObjectName) String() string {
	return n.Domain + "/" + n.Item
}

// EncodeObjectName encodes the domain-specific name [1] { domainId [VisibleString], itemId [VisibleString] }
// content, i.e. everything inside the name [0] wrapper.
func EncodeObjectName(n ObjectName, buffer []byte, bufPos int) int {
	domainSpecific := make([]byte, 512)
	p := 0
	p = ber.EncodeStringWithTag(byte(ber.VisibleString), n.Domain, domainSpecific, p)
	p = ber.EncodeStringWithTag(byte(ber.VisibleString), n.Item, domainSpecific, p)

	bufPos = ber.EncodeTL(byte(ber.Context1Constructed), uint32(p), buffer, bufPos)
	copy(buffer[bufPos:], domainSpecific[:p])
	bufPos += p
	return bufPos
}

// DecodeObjectName decodes the content of a domain-specific ObjectName: two
// back-to-back VisibleStrings, domainId then itemId, with any name [0] or
// domain-specific [1] wrapper already stripped by the caller. It returns the
// decoded name and the position just past itemId within content.
func DecodeObjectName(content []byte) (ObjectName, int, error) {
	pos := 0
	domainTLV, err := ber.ReadTLV(content, pos)
	if err != nil {
		return ObjectName{}, 0, fmt.Errorf("mms: object-name domainId: %w", err)
	}
	pos = domainTLV.NextPos

	itemTLV, err := ber.ReadTLV(content, pos)
	if err != nil {
		return ObjectName{}, 0, fmt.Errorf("mms: object-name itemId: %w", err)
	}
	pos = itemTLV.NextPos

	return ObjectName{Domain: string(domainTLV.Content), Item: string(itemTLV.Content)}, pos, nil
}
