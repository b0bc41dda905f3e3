package mms

import (
	"fmt"

	"github.com/slonegd/mmsreportd/internal/ber"
	"github.com/slonegd/mmsreportd/internal/mmsvalue"
)

// DataAccessErrorCode is the MMS DataAccessError enumeration, ISO/IEC 9506-2.
type DataAccessErrorCode uint32

const (
	ObjectInvalidated DataAccessErrorCode = iota
	HardwareFault
	TemporarilyUnavailable
	ObjectAccessDenied
	ObjectUndefined
	InvalidAddress
	TypeUnsupported
	TypeInconsistent
	ObjectAttributeInconsistent
	ObjectAccessUnsupported
	ObjectNonExistent
	ObjectValueInvalid
)

// Error lets a DataAccessErrorCode returned from a failed write be matched
// with errors.As by callers that need to special-case a particular code
// (e.g. object-access-denied during RCB setup).
func (c DataAccessErrorCode) Error() string { return c.String() }

func (c DataAccessErrorCode) String() string {
	switch c {
	case ObjectInvalidated:
		return "object-invalidated"
	case HardwareFault:
		return "hardware-fault"
	case TemporarilyUnavailable:
		return "temporarily-unavailable"
	case ObjectAccessDenied:
		return "object-access-denied"
	case ObjectUndefined:
		return "object-undefined"
	case InvalidAddress:
		return "invalid-address"
	case TypeUnsupported:
		return "type-unsupported"
	case TypeInconsistent:
		return "type-inconsistent"
	case ObjectAttributeInconsistent:
		return "object-attribute-inconsistent"
	case ObjectAccessUnsupported:
		return "object-access-unsupported"
	case ObjectNonExistent:
		return "object-non-existent"
	case ObjectValueInvalid:
		return "object-value-invalid"
	default:
		return fmt.Sprintf("data-access-error(%d)", uint32(c))
	}
}

// AccessResult is the CHOICE success [1] Data | failure [0] DataAccessError.
type AccessResult struct {
	Success bool
	Value   mmsvalue.Value
	Error   DataAccessErrorCode
}

// decodeReadResponse decodes Read-Response ::= SEQUENCE { variableAccessSpecification
// [0] OPTIONAL, listOfAccessResult [1] }, service tag already stripped.
func decodeReadResponse(content []byte) ([]AccessResult, error) {
	pos := 0
	for pos < len(content) {
		tlv, err := ber.ReadTLV(content, pos)
		if err != nil {
			return nil, fmt.Errorf("mms: read-response member: %w", err)
		}
		if ber.NumberOf(tlv.Tag) == 1 { // listOfAccessResult
			return decodeAccessResultList(tlv.Content)
		}
		pos = tlv.NextPos
	}
	return nil, nil
}

// decodeAccessResultList decodes a SEQUENCE OF AccessResult. Some IEDs wrap
// it in an explicit SEQUENCE (tag 0x30); others emit the AccessResult
// elements directly back-to-back with no wrapper. Both are accepted.
func decodeAccessResultList(content []byte) ([]AccessResult, error) {
	if len(content) > 0 && content[0] == byte(ber.SequenceConstructed) {
		tlv, err := ber.ReadTLV(content, 0)
		if err != nil {
			return nil, fmt.Errorf("mms: listOfAccessResult SEQUENCE: %w", err)
		}
		content = tlv.Content
	}

	var results []AccessResult
	pos := 0
	for pos < len(content) {
		tlv, err := ber.ReadTLV(content, pos)
		if err != nil {
			return nil, fmt.Errorf("mms: access-result member: %w", err)
		}
		result, err := decodeAccessResult(tlv.Tag, tlv.Content)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
		pos = tlv.NextPos
	}
	return results, nil
}

func decodeAccessResult(tag byte, content []byte) (AccessResult, error) {
	if ber.NumberOf(tag) == 0 && ber.ClassOf(tag) == ber.ClassContextSpecific {
		// failure [0] DataAccessError ::= INTEGER
		code := DataAccessErrorCode(ber.DecodeUint32(content, len(content), 0))
		return AccessResult{Success: false, Error: code}, nil
	}

	// success [1] Data — Data itself is a CHOICE tagged [1]..[17]; the
	// AccessResult wrapper tag 0x81 (success) is implicit for constructed
	// Data (structure/array) but this codec also accepts the Data tag
	// appearing directly, which is what every IED observed in the wild does.
	v, err := mmsvalue.DecodeData(tag, content)
	if err != nil {
		return AccessResult{}, fmt.Errorf("mms: access-result success: %w", err)
	}
	return AccessResult{Success: true, Value: v}, nil
}
