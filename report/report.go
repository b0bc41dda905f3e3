package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/slonegd/mmsreportd/internal/ber"
	"github.com/slonegd/mmsreportd/internal/mmsvalue"
	"golang.org/x/exp/constraints"
)

// ErrDecodeMismatch marks a report whose decoded dataset-member entries do
// not number the Inclusion bit-string's popcount. The report is
// still returned with whatever entries could be recovered; the caller
// decides whether to discard it.
var ErrDecodeMismatch = errors.New("report: decode mismatch")

// Entry is one dataset member's value as carried in a report, in dataset
// order.
type Entry struct {
	Index     int
	Label     string
	Value     mmsvalue.Value
	Quality   *mmsvalue.BitString
	Timestamp *time.Time
}

// Report is the parsed shape of an unconfirmed informationReport: the
// optional header fields present per OptFlds, the Inclusion bit-string, and
// the dataset member entries it marks present.
type Report struct {
	RptID          string
	DatasetRef     *string
	SequenceNumber *uint32
	TimeOfEntry    *time.Time
	BufferOverflow *bool
	ConfRev        *uint32
	Subseq         *uint32
	MoreFollows    *bool
	EntryID        []byte
	Inclusion      []bool
	Entries        []Entry
}

// Decode splits values (the report's listOfAccessResult already reduced to
// their payloads, e.g. via mms.Values) into header fields and dataset
// members, per the RCB's OptFlds. Decode takes no dataset reference of its
// own: label lookup is left to the caller, which can use the report's
// variableAccessSpecification or the DatasetRef header field.
func Decode(opt OptFlds, values []mmsvalue.Value) (Report, error) {
	if len(values) == 0 {
		return Report{}, fmt.Errorf("report: empty listOfAccessResult")
	}
	if values[0].Kind() != mmsvalue.KindVisibleString {
		return Report{}, fmt.Errorf("report: first element is %s, want visible-string RptID", values[0].Kind())
	}

	var rpt Report
	rpt.RptID = values[0].AsString()
	pos := 1

	next := func(field string) (mmsvalue.Value, error) {
		if pos >= len(values) {
			return mmsvalue.Value{}, fmt.Errorf("report: header truncated before %s", field)
		}
		v := values[pos]
		pos++
		return v, nil
	}

	if opt.DataSetName {
		v, err := next("dataset-name")
		if err != nil {
			return Report{}, err
		}
		s := v.AsString()
		rpt.DatasetRef = &s
	}
	if opt.SequenceNumber {
		v, err := next("sequence-number")
		if err != nil {
			return Report{}, err
		}
		n := uint32(v.AsUint())
		rpt.SequenceNumber = &n
	}
	if opt.ReportTimeStamp {
		v, err := next("report-time-stamp")
		if err != nil {
			return Report{}, err
		}
		t, err := valueToTime(v)
		if err != nil {
			return Report{}, fmt.Errorf("report: time-of-entry: %w", err)
		}
		rpt.TimeOfEntry = &t
	}
	if opt.BufferOverflow {
		v, err := next("buffer-overflow")
		if err != nil {
			return Report{}, err
		}
		b := v.AsBool()
		rpt.BufferOverflow = &b
	}
	if opt.ConfRevision {
		v, err := next("conf-revision")
		if err != nil {
			return Report{}, err
		}
		n := uint32(v.AsUint())
		rpt.ConfRev = &n
	}
	if opt.Segmentation {
		subseqVal, err := next("subsequence-number")
		if err != nil {
			return Report{}, err
		}
		moreVal, err := next("more-segments-follow")
		if err != nil {
			return Report{}, err
		}
		n := uint32(subseqVal.AsUint())
		m := moreVal.AsBool()
		rpt.Subseq = &n
		rpt.MoreFollows = &m
	}
	if opt.EntryID {
		v, err := next("entryID")
		if err != nil {
			return Report{}, err
		}
		rpt.EntryID = v.AsOctets()
	}

	inclusionVal, err := next("inclusion")
	if err != nil {
		return Report{}, err
	}
	if inclusionVal.Kind() != mmsvalue.KindBitString {
		return Report{}, fmt.Errorf("report: inclusion field is %s, want bit-string", inclusionVal.Kind())
	}
	rpt.Inclusion = inclusionVal.AsBitString().Bits

	entries, entryErr := decodeEntries(rpt.Inclusion, values[pos:])
	rpt.Entries = entries
	return rpt, entryErr
}

// decodeEntries splits the dataset-member tail of listOfAccessResult into
// per-member entries, accepting both layouts real IEDs emit: per-row
// (value, [quality], [timestamp] repeated per member) and per-column (all
// values, then all qualities, then all timestamps).
func decodeEntries(inclusion []bool, remaining []mmsvalue.Value) ([]Entry, error) {
	n := ber.PopCount(inclusion)
	if n == 0 {
		return nil, nil
	}
	if len(remaining) == 0 {
		return nil, fmt.Errorf("%w: inclusion marks %d members present, no values remain", ErrDecodeMismatch, n)
	}

	present := presentIndexes(inclusion)
	columns := len(remaining) / n
	if columns < 1 {
		columns = 1
	}

	var entries []Entry
	if columns > 1 && len(remaining) > 1 && isAdjacentColumnKind(remaining[1]) {
		entries = decodeEntriesPerRow(present, remaining)
	} else {
		entries = decodeEntriesPerColumn(present, remaining, n, columns)
	}

	sortEntries(entries, func(e Entry) int { return e.Index })

	if len(entries) != n {
		return entries, fmt.Errorf("%w: decoded %d entries, inclusion popcount is %d", ErrDecodeMismatch, len(entries), n)
	}
	return entries, nil
}

func decodeEntriesPerRow(present []int, remaining []mmsvalue.Value) []Entry {
	entries := make([]Entry, 0, len(present))
	pos := 0
	for _, idx := range present {
		if pos >= len(remaining) {
			break
		}
		e := Entry{Index: idx, Value: normalizeValue(remaining[pos])}
		pos++
		if pos < len(remaining) && remaining[pos].Kind() == mmsvalue.KindBitString {
			bs := remaining[pos].AsBitString()
			e.Quality = &bs
			pos++
		}
		if pos < len(remaining) && isTimestampKind(remaining[pos]) {
			if t, err := valueToTime(remaining[pos]); err == nil {
				e.Timestamp = &t
			}
			pos++
		}
		entries = append(entries, e)
	}
	return entries
}

func decodeEntriesPerColumn(present []int, remaining []mmsvalue.Value, n, columns int) []Entry {
	entries := make([]Entry, 0, len(present))
	hasQuality := columns >= 2
	hasTimestamp := columns >= 3
	for i, idx := range present {
		if i >= n || i >= len(remaining) {
			break
		}
		e := Entry{Index: idx, Value: normalizeValue(remaining[i])}
		if hasQuality && n+i < len(remaining) {
			bs := remaining[n+i].AsBitString()
			e.Quality = &bs
		}
		if hasTimestamp && 2*n+i < len(remaining) {
			if t, err := valueToTime(remaining[2*n+i]); err == nil {
				e.Timestamp = &t
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// isAdjacentColumnKind reports whether v looks like a per-member quality or
// timestamp column sitting immediately after its value, the signal used to
// tell per-row layout apart from per-column.
func isAdjacentColumnKind(v mmsvalue.Value) bool {
	return v.Kind() == mmsvalue.KindBitString || isTimestampKind(v)
}

func isTimestampKind(v mmsvalue.Value) bool {
	return v.Kind() == mmsvalue.KindUTCTime || v.Kind() == mmsvalue.KindBinaryTime
}

func valueToTime(v mmsvalue.Value) (time.Time, error) {
	switch v.Kind() {
	case mmsvalue.KindUTCTime:
		return v.AsUTCTime().Time, nil
	case mmsvalue.KindBinaryTime:
		return mmsvalue.DecodeBinaryTime(v.AsBinaryTime())
	default:
		return time.Time{}, fmt.Errorf("report: %s is not a timestamp", v.Kind())
	}
}

func presentIndexes(inclusion []bool) []int {
	var idx []int
	for i, b := range inclusion {
		if b {
			idx = append(idx, i)
		}
	}
	return idx
}

// normalizeValue recurses into structure values, collapsing the canonical
// IEC 61850 AnalogueValue { i, f } (a two-element structure) into an ordered
// pair; a Vector { mag, ang } (three elements, one of them a nested
// AnalogueValue) keeps its shape, each child normalized in turn.
func normalizeValue(v mmsvalue.Value) mmsvalue.Value {
	if v.Kind() != mmsvalue.KindStructure {
		return v
	}
	elems := v.Elements()
	normalized := make([]mmsvalue.Value, len(elems))
	for i, e := range elems {
		normalized[i] = normalizeValue(e)
	}
	if len(normalized) == 2 {
		return mmsvalue.Array(normalized)
	}
	return mmsvalue.Structure(normalized)
}

// sortEntries orders entries by an arbitrary ordered key, used to guarantee
// dataset order holds regardless of which layout decodeEntries took.
func sortEntries[K constraints.Ordered](entries []Entry, key func(Entry) K) {
	sort.Slice(entries, func(i, j int) bool { return key(entries[i]) < key(entries[j]) })
}
