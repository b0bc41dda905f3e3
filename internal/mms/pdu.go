// Package mms implements the subset of ISO/IEC 9506 Manufacturing Message
// Specification needed to initiate a session, read and write Report Control
// Block attributes, and decode unconfirmed informationReport PDUs.
package mms

import (
	"fmt"

	"github.com/slonegd/mmsreportd/internal/ber"
	"github.com/slonegd/mmsreportd/internal/mmsvalue"
)

// Top-level MMS-PDU CHOICE tags. These are context-specific, constructed
// (the CHOICE is implicit in the ASN.1 module), not application-class, even
// though some write-ups describe them loosely as "application tags".
const (
	tagConfirmedRequest  = 0xA0
	tagConfirmedResponse = 0xA1
	tagConfirmedError    = 0xA2
	tagUnconfirmed       = 0xA3
	tagInitiateRequest   = 0xA8
	tagInitiateResponse  = 0xA9
)

// Confirmed service choice tags, nested one level inside a confirmed
// request/response.
const (
	serviceRead  = 0xA4
	serviceWrite = 0xA5
)

// unconfirmed service choice: informationReport.
const serviceInformationReport = 0xA0

// PduKind discriminates the decoded PDU union.
type PduKind int

const (
	PduInitiateResponse PduKind = iota
	PduConfirmedResponse
	PduConfirmedError
	PduInformationReport
)

// ServiceError carries the confirmed-ErrorPDU class/code pair, reported back
// to the orchestrator as MmsServiceError.
type ServiceError struct {
	ErrorClass uint32
	ErrorCode  uint32
}

func (e ServiceError) Error() string {
	return fmt.Sprintf("mms: service error class=%d code=%d", e.ErrorClass, e.ErrorCode)
}

// InformationReport is the parsed shape of an unconfirmed informationReport:
// an optional dataset reference and the ordered list of access results the
// report package further splits into header fields and dataset members.
type InformationReport struct {
	DatasetRef string // empty if variableAccessSpecification was omitted
	Results    []AccessResult
}

// Pdu is the decoded top-level MMS PDU.
type Pdu struct {
	Kind     PduKind
	InvokeID uint32
	Initiate InitiateResponse
	Results  []AccessResult // ConfirmedResponse: listOfAccessResult (read response)
	Report   InformationReport
	Error    ServiceError
}

// DecodePDU dispatches on the top-level MMS-PDU CHOICE tag.
func DecodePDU(buf []byte) (Pdu, error) {
	if len(buf) == 0 {
		return Pdu{}, fmt.Errorf("mms: empty PDU")
	}
	tlv, err := ber.ReadTLV(buf, 0)
	if err != nil {
		return Pdu{}, fmt.Errorf("mms: top-level TLV: %w", err)
	}

	switch tlv.Tag {
	case tagInitiateResponse:
		init, err := decodeInitiateResponseBody(tlv.Content)
		if err != nil {
			return Pdu{}, err
		}
		return Pdu{Kind: PduInitiateResponse, Initiate: init}, nil

	case tagConfirmedResponse:
		invokeID, results, err := decodeConfirmedResponse(tlv.Content)
		if err != nil {
			return Pdu{}, err
		}
		return Pdu{Kind: PduConfirmedResponse, InvokeID: invokeID, Results: results}, nil

	case tagConfirmedError:
		invokeID, svcErr, err := decodeConfirmedError(tlv.Content)
		if err != nil {
			return Pdu{}, err
		}
		return Pdu{Kind: PduConfirmedError, InvokeID: invokeID, Error: svcErr}, nil

	case tagUnconfirmed:
		report, err := decodeUnconfirmed(tlv.Content)
		if err != nil {
			return Pdu{}, err
		}
		return Pdu{Kind: PduInformationReport, Report: report}, nil

	default:
		return Pdu{}, fmt.Errorf("mms: unsupported top-level PDU tag 0x%02x", tlv.Tag)
	}
}

// decodeConfirmedResponse decodes { invokeID INTEGER, confirmedServiceResponse CHOICE { read [4], write [5] } }.
// Both read and write service-results decode to an AccessResult list; a
// single-variable write response is a one-element list.
func decodeConfirmedResponse(content []byte) (invokeID uint32, results []AccessResult, err error) {
	pos := 0
	for pos < len(content) {
		tlv, err := ber.ReadTLV(content, pos)
		if err != nil {
			return 0, nil, fmt.Errorf("mms: confirmed-response member: %w", err)
		}
		switch {
		case tlv.Tag == byte(ber.Integer): // invokeID, plain INTEGER on the wire — matches observed traffic
			invokeID = ber.DecodeUint32(tlv.Content, len(tlv.Content), 0)
		case ber.NumberOf(tlv.Tag) == 4: // confirmedServiceResponse: read [4]
			results, err = decodeReadResponse(tlv.Content)
			if err != nil {
				return 0, nil, err
			}
		case ber.NumberOf(tlv.Tag) == 5: // confirmedServiceResponse: write [5], SEQUENCE OF AccessResult
			results, err = decodeAccessResultList(tlv.Content)
			if err != nil {
				return 0, nil, err
			}
		}
		pos = tlv.NextPos
	}
	return invokeID, results, nil
}

func decodeConfirmedError(content []byte) (invokeID uint32, svcErr ServiceError, err error) {
	pos := 0
	for pos < len(content) {
		tlv, terr := ber.ReadTLV(content, pos)
		if terr != nil {
			return 0, ServiceError{}, fmt.Errorf("mms: confirmed-error member: %w", terr)
		}
		switch {
		case tlv.Tag == byte(ber.Integer):
			invokeID = ber.DecodeUint32(tlv.Content, len(tlv.Content), 0)
		case ber.NumberOf(tlv.Tag) == 1: // serviceError SEQUENCE { errorClass, additionalCode/errorCode }
			svcErr, err = decodeServiceError(tlv.Content)
			if err != nil {
				return 0, ServiceError{}, err
			}
		}
		pos = tlv.NextPos
	}
	return invokeID, svcErr, nil
}

func decodeServiceError(content []byte) (ServiceError, error) {
	var svcErr ServiceError
	pos := 0
	for pos < len(content) {
		tlv, err := ber.ReadTLV(content, pos)
		if err != nil {
			return ServiceError{}, fmt.Errorf("mms: service-error member: %w", err)
		}
		switch ber.NumberOf(tlv.Tag) {
		case 0: // errorClass CHOICE { tag = specific class, value = specific code }
			svcErr.ErrorClass = uint32(tlv.Content[0])
			if len(tlv.Content) > 1 {
				sub, err := ber.ReadTLV(tlv.Content, 0)
				if err == nil {
					svcErr.ErrorCode = ber.DecodeUint32(sub.Content, len(sub.Content), 0)
				}
			}
		}
		pos = tlv.NextPos
	}
	return svcErr, nil
}

// decodeUnconfirmed decodes unconfirmed-PDU { unconfirmedService CHOICE { informationReport [0] ... } }.
func decodeUnconfirmed(content []byte) (InformationReport, error) {
	pos := 0
	for pos < len(content) {
		tlv, err := ber.ReadTLV(content, pos)
		if err != nil {
			return InformationReport{}, fmt.Errorf("mms: unconfirmed member: %w", err)
		}
		if ber.NumberOf(tlv.Tag) == 0 { // informationReport [0]
			return decodeInformationReport(tlv.Content)
		}
		pos = tlv.NextPos
	}
	return InformationReport{}, fmt.Errorf("mms: unconfirmed PDU has no informationReport member")
}

// decodeInformationReport decodes { variableAccessSpecification [0] OPTIONAL, listOfAccessResult [1] }.
func decodeInformationReport(content []byte) (InformationReport, error) {
	var report InformationReport
	pos := 0
	for pos < len(content) {
		tlv, err := ber.ReadTLV(content, pos)
		if err != nil {
			return InformationReport{}, fmt.Errorf("mms: informationReport member: %w", err)
		}
		switch ber.NumberOf(tlv.Tag) {
		case 0: // variableAccessSpecification
			report.DatasetRef = decodeVariableAccessSpecification(tlv.Content)
		case 1: // listOfAccessResult
			results, err := decodeAccessResultList(tlv.Content)
			if err != nil {
				return InformationReport{}, err
			}
			report.Results = results
		}
		pos = tlv.NextPos
	}
	return report, nil
}

// decodeVariableAccessSpecification extracts a best-effort dataset reference
// string ("domain/item") from a variableListName ObjectName, if present.
// Malformed or absent content yields an empty ref rather than an error: a
// missing dataset-name is valid per OptFlds and not fatal to the report.
func decodeVariableAccessSpecification(content []byte) string {
	// Peel wrapper TLVs (variableListName [1] / name [0] / domain-specific [1])
	// down to the two bare VisibleStrings DecodeObjectName expects.
	for len(content) > 0 && content[0] != byte(ber.VisibleString) {
		tlv, err := ber.ReadTLV(content, 0)
		if err != nil {
			return ""
		}
		content = tlv.Content
	}
	if len(content) == 0 {
		return ""
	}
	name, _, err := DecodeObjectName(content)
	if err != nil {
		return ""
	}
	return name.String()
}

// Values converts a results list of successful AccessResults to their
// mmsvalue.Value payloads in order, used by the report decoder which only
// cares about the decoded dataset member values.
func Values(results []AccessResult) []mmsvalue.Value {
	out := make([]mmsvalue.Value, len(results))
	for i, r := range results {
		out[i] = r.Value
	}
	return out
}
