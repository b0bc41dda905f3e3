package mms

import (
	"fmt"

	"github.com/slonegd/mmsreportd/internal/ber"
)

// ServiceSupportedBit is a bit position in the ServicesSupportedCalling /
// ServicesSupportedCalled capability bitstring, ISO/IEC 9506-2 Annex A.
type ServiceSupportedBit uint

const (
	SvcStatus ServiceSupportedBit = iota
	SvcGetNameList
	SvcIdentify
	SvcRename
	SvcRead
	SvcWrite
	SvcGetVariableAccessAttributes
	SvcDefineNamedVariable
	SvcDefineScatteredAccess
	SvcGetScatteredAccessAttributes
	SvcDeleteVariableAccess
	SvcDefineNamedVariableList
	SvcGetNamedVariableListAttributes
	SvcDeleteNamedVariableList
	SvcDefineNamedType
	SvcGetNamedTypeAttributes
	SvcDeleteNamedType
	SvcInput
	SvcOutput
	SvcTakeControl
	SvcRelinquishControl
	SvcDefineSemaphore
	SvcDeleteSemaphore
	SvcReportSemaphoreStatus
	SvcReportPoolSemaphoreStatus
	SvcReportSemaphoreEntryStatus
	SvcInitiateDownloadSequence
	SvcDownloadSegment
	SvcTerminateDownloadSequence
	SvcInitiateUploadSequence
	SvcUploadSegment
	SvcTerminateUploadSequence
	SvcRequestDomainDownload
	SvcRequestDomainUpload
	SvcLoadDomainContent
	SvcStoreDomainContent
	SvcDeleteDomain
	SvcGetDomainAttributes
	SvcCreateProgramInvocation
	SvcDeleteProgramInvocation
	SvcStart
	SvcStop
	SvcResume
	SvcReset
	SvcKill
	SvcGetProgramInvocationAttributes
	SvcObtainFile
	SvcDefineEventCondition
	SvcDeleteEventCondition
	SvcGetEventConditionAttributes
	SvcReportEventConditionStatus
	SvcAlterEventConditionMonitoring
	SvcTriggerEvent
	SvcDefineEventAction
	SvcDeleteEventAction
	SvcGetEventActionAttributes
	SvcReportActionStatus
	SvcDefineEventEnrollment
	SvcDeleteEventEnrollment
	SvcAlterEventEnrollment
	SvcReportEventEnrollmentStatus
	SvcGetEventEnrollmentAttributes
	SvcAcknowledgeEventNotification
	SvcGetAlarmSummary
	SvcGetAlarmEnrollmentSummary
	SvcReadJournal
	SvcWriteJournal
	SvcInitializeJournal
	SvcReportJournalStatus
	SvcCreateJournal
	SvcDeleteJournal
	SvcGetCapabilityList
	SvcFileOpen
	SvcFileRead
	SvcFileClose
	SvcFileRename
	SvcFileDelete
	SvcFileDirectory
	SvcUnsolicitedStatus
	SvcInformationReport
	SvcEventNotification
	SvcAttachToEventCondition
	SvcAttachToSemaphore
	SvcConclude
	SvcCancel
)

// servicesSupportedBitCount is the number of data bits in the
// ServicesSupportedCalling/Called bitstring (85 data bits, padded to 88).
const servicesSupportedBitCount = 85

// ParameterCBBBit is a bit position in the ParameterSupportOptions
// (parameter CBB) capability bitstring.
type ParameterCBBBit uint

const (
	CbbStr1 ParameterCBBBit = iota
	CbbStr2
	CbbVnam
	CbbValt
	CbbVadr
	CbbVsca
	CbbTpy
	CbbVlis
	CbbReal
	cbbSpare9
	CbbCei
)

// parameterCBBBitCount is the number of data bits in the ParameterCBB
// bitstring (11 data bits, padded to 16).
const parameterCBBBitCount = 11

// InitiateRequest carries the association parameters this client proposes
// when opening an MMS connection. Defaults follow this client's negotiated
// profile rather than any single IED vendor's; a server is free to negotiate
// any of them down in its InitiateResponse.
type InitiateRequest struct {
	LocalDetailCalling                 uint32
	ProposedMaxServOutstandingCalling  uint32
	ProposedMaxServOutstandingCalled   uint32
	ProposedDataStructureNestingLevel  uint32
	ProposedVersionNumber              uint32
	ProposedParameterCBB               []ParameterCBBBit
	ServicesSupportedCalling           []ServiceSupportedBit
}

var _ = cbbSpare9 // named for completeness of the ParameterCBBBit enum; unused by this client

// InitiateRequestOption customizes a DefaultInitiateRequest.
type InitiateRequestOption func(*InitiateRequest)

// DefaultInitiateRequest returns the association parameters this client
// proposes by default: max PDU size 65000, up to 10 outstanding services in
// either direction, nested data structures up to 5 levels deep, MMS version
// 1, and parameter CBB {str1, str2, vnam, valt, vadr, tpy, vlis}.
func DefaultInitiateRequest() *InitiateRequest {
	return &InitiateRequest{
		LocalDetailCalling:                65000,
		ProposedMaxServOutstandingCalling: 10,
		ProposedMaxServOutstandingCalled:  10,
		ProposedDataStructureNestingLevel: 5,
		ProposedVersionNumber:             1,
		ProposedParameterCBB: []ParameterCBBBit{
			CbbStr1, CbbStr2, CbbVnam, CbbValt, CbbVadr, CbbTpy, CbbVlis,
		},
		ServicesSupportedCalling: []ServiceSupportedBit{
			SvcStatus, SvcGetNameList, SvcIdentify, SvcRead, SvcWrite,
			SvcGetVariableAccessAttributes, SvcDefineNamedVariableList,
			SvcGetNamedVariableListAttributes, SvcDeleteNamedVariableList,
			SvcGetDomainAttributes, SvcUnsolicitedStatus, SvcInformationReport,
			SvcConclude, SvcCancel,
		},
	}
}

func WithLocalDetailCalling(size uint32) InitiateRequestOption {
	return func(r *InitiateRequest) { r.LocalDetailCalling = size }
}

func WithProposedDataStructureNestingLevel(level uint32) InitiateRequestOption {
	return func(r *InitiateRequest) { r.ProposedDataStructureNestingLevel = level }
}

func NewInitiateRequest(opts ...InitiateRequestOption) *InitiateRequest {
	r := DefaultInitiateRequest()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bytes encodes the InitiateRequest as an initiate-RequestPDU, context tag 8
// constructed.
func (r *InitiateRequest) Bytes() []byte {
	content := r.buildContent()
	buffer := make([]byte, len(content)+8)
	pos := ber.EncodeTL(tagInitiateRequest, uint32(len(content)), buffer, 0)
	copy(buffer[pos:], content)
	return buffer[:pos+len(content)]
}

func (r *InitiateRequest) buildContent() []byte {
	buffer := make([]byte, 256)
	pos := 0

	pos = encodeContextUint32(0x80, r.LocalDetailCalling, buffer, pos)
	pos = encodeContextUint32(0x81, r.ProposedMaxServOutstandingCalling, buffer, pos)
	pos = encodeContextUint32(0x82, r.ProposedMaxServOutstandingCalled, buffer, pos)
	pos = encodeContextUint32(0x83, r.ProposedDataStructureNestingLevel, buffer, pos)

	detail := r.buildInitRequestDetail()
	copy(buffer[pos:], detail)
	pos += len(detail)

	return buffer[:pos]
}

// buildInitRequestDetail encodes mmsInitRequestDetail, context tag 4
// constructed: { proposedVersionNumber [0], proposedParameterCBB [1] BIT
// STRING, servicesSupportedCalling [2] BIT STRING }.
func (r *InitiateRequest) buildInitRequestDetail() []byte {
	buffer := make([]byte, 256)
	pos := 0

	pos = encodeContextUint32(0x80, r.ProposedVersionNumber, buffer, pos)

	cbbMask := ber.EncodeBitmaskFromOffsets(r.ProposedParameterCBB, parameterCBBBitCount)
	pos = encodeContextBitString(0x81, cbbMask, parameterCBBBitCount, buffer, pos)

	svcMask := ber.EncodeBitmaskFromOffsets(r.ServicesSupportedCalling, servicesSupportedBitCount)
	pos = encodeContextBitString(0x82, svcMask, servicesSupportedBitCount, buffer, pos)

	detail := buffer[:pos]
	out := make([]byte, len(detail)+6)
	outPos := ber.EncodeTL(byte(ber.Context4Constructed), uint32(len(detail)), out, 0)
	copy(out[outPos:], detail)
	return out[:outPos+len(detail)]
}

func encodeContextUint32(tag byte, value uint32, buffer []byte, pos int) int {
	tmp := make([]byte, 8)
	n := ber.EncodeUInt32(value, tmp, 0)
	pos = ber.EncodeTL(tag, uint32(n), buffer, pos)
	copy(buffer[pos:], tmp[:n])
	return pos + n
}

func encodeContextBitString(tag byte, mask []byte, bitCount int, buffer []byte, pos int) int {
	paddingBits := byte(len(mask)*8 - bitCount)
	pos = ber.EncodeTL(tag, uint32(len(mask)+1), buffer, pos)
	buffer[pos] = paddingBits
	pos++
	copy(buffer[pos:], mask)
	return pos + len(mask)
}

// InitiateResponse is the negotiated association result from the server.
type InitiateResponse struct {
	LocalDetailCalled                   *uint32
	NegotiatedMaxServOutstandingCalling uint32
	NegotiatedMaxServOutstandingCalled  uint32
	NegotiatedDataStructureNestingLevel *uint32
	NegotiatedVersionNumber             uint32
	NegotiatedParameterCBB              []ParameterCBBBit
	ServicesSupportedCalled             []ServiceSupportedBit
}

// decodeInitiateResponseBody decodes the content of an initiate-ResponsePDU
// (tag byte already consumed by the caller).
func decodeInitiateResponseBody(content []byte) (InitiateResponse, error) {
	var resp InitiateResponse
	pos := 0
	for pos < len(content) {
		tlv, err := ber.ReadTLV(content, pos)
		if err != nil {
			return InitiateResponse{}, fmt.Errorf("mms: initiate-response member: %w", err)
		}
		switch tlv.Tag {
		case 0x80:
			v := ber.DecodeUint32(tlv.Content, len(tlv.Content), 0)
			resp.LocalDetailCalled = &v
		case 0x81:
			resp.NegotiatedMaxServOutstandingCalling = ber.DecodeUint32(tlv.Content, len(tlv.Content), 0)
		case 0x82:
			resp.NegotiatedMaxServOutstandingCalled = ber.DecodeUint32(tlv.Content, len(tlv.Content), 0)
		case 0x83:
			v := ber.DecodeUint32(tlv.Content, len(tlv.Content), 0)
			resp.NegotiatedDataStructureNestingLevel = &v
		default:
			if ber.NumberOf(tlv.Tag) == 4 && ber.IsConstructed(tlv.Tag) {
				if err := decodeInitResponseDetail(tlv.Content, &resp); err != nil {
					return InitiateResponse{}, err
				}
			}
		}
		pos = tlv.NextPos
	}
	return resp, nil
}

func decodeInitResponseDetail(content []byte, resp *InitiateResponse) error {
	pos := 0
	for pos < len(content) {
		tlv, err := ber.ReadTLV(content, pos)
		if err != nil {
			return fmt.Errorf("mms: mmsInitResponseDetail member: %w", err)
		}
		switch tlv.Tag {
		case 0x80:
			resp.NegotiatedVersionNumber = ber.DecodeUint32(tlv.Content, len(tlv.Content), 0)
		case 0x81:
			if len(tlv.Content) < 1 {
				return fmt.Errorf("mms: negotiatedParameterCBB missing padding byte")
			}
			offsets := ber.DecodeBitmaskFromBytes(tlv.Content[1:], tlv.Content[0], parameterCBBBitCount)
			resp.NegotiatedParameterCBB = make([]ParameterCBBBit, len(offsets))
			for i, o := range offsets {
				resp.NegotiatedParameterCBB[i] = ParameterCBBBit(o)
			}
		case 0x82:
			if len(tlv.Content) < 1 {
				return fmt.Errorf("mms: servicesSupportedCalled missing padding byte")
			}
			offsets := ber.DecodeBitmaskFromBytes(tlv.Content[1:], tlv.Content[0], servicesSupportedBitCount)
			resp.ServicesSupportedCalled = make([]ServiceSupportedBit, len(offsets))
			for i, o := range offsets {
				resp.ServicesSupportedCalled[i] = ServiceSupportedBit(o)
			}
		}
		pos = tlv.NextPos
	}
	return nil
}
