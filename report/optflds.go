// Package report splits a decoded informationReport's flat listOfAccessResult
// into the RCB header fields and dataset member entries it actually carries,
// using the subscribing RCB's OptFlds and the report's own Inclusion
// bit-string to know which fields to expect.
package report

import "github.com/slonegd/mmsreportd/internal/ber"

// OptFlds is the decoded form of an RCB's OptFlds bit-string attribute: which
// optional header fields a report from that RCB will carry, bit i from MSB.
type OptFlds struct {
	SequenceNumber      bool
	ReportTimeStamp     bool
	ReasonForInclusion  bool
	DataSetName         bool
	DataReference       bool
	BufferOverflow      bool
	EntryID             bool
	ConfRevision        bool
	Segmentation        bool
}

// DecodeOptFlds reads the named flags out of an OptFlds bit-string value.
func DecodeOptFlds(bits []bool) OptFlds {
	return OptFlds{
		SequenceNumber:     ber.BitSet(bits, 1),
		ReportTimeStamp:    ber.BitSet(bits, 2),
		ReasonForInclusion: ber.BitSet(bits, 3),
		DataSetName:        ber.BitSet(bits, 4),
		DataReference:      ber.BitSet(bits, 5),
		BufferOverflow:     ber.BitSet(bits, 6),
		EntryID:            ber.BitSet(bits, 7),
		ConfRevision:       ber.BitSet(bits, 8),
		Segmentation:       ber.BitSet(bits, 9),
	}
}

// DefaultOptFlds is the enable_rcb write value 0b0111111110: sequence-number,
// report-time-stamp, reason-for-inclusion, data-set-name, data-reference,
// buffer-overflow, entryID, conf-revision set; reserved and segmentation
// clear. Chosen to maximize decoder information on every report.
func DefaultOptFlds() []bool {
	return []bool{false, true, true, true, true, true, true, true, true, false}
}
