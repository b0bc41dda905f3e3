// Package rcb drives the Report Control Block setup dance: reading an RCB's
// current attributes, then writing the sequence of values that enables
// reporting with a known OptFlds/TrgOps configuration.
package rcb

import (
	"context"
	"errors"
	"fmt"

	"github.com/slonegd/mmsreportd/internal/mms"
	"github.com/slonegd/mmsreportd/internal/mmsvalue"
	"github.com/slonegd/mmsreportd/report"
)

// Attribute names, ISO/IEC 61850-7-2 report control block model.
const (
	AttrRptID    = "RptID"
	AttrRptEna   = "RptEna"
	AttrResv     = "Resv"     // URCB
	AttrResvTms  = "ResvTms"  // BRCB
	AttrDatSet   = "DatSet"
	AttrConfRev  = "ConfRev"
	AttrOptFlds  = "OptFlds"
	AttrBufTm    = "BufTm"
	AttrSqNum    = "SqNum"
	AttrTrgOps   = "TrgOps"
	AttrIntgPd   = "IntgPd"
	AttrGI       = "GI"
	AttrPurgeBuf = "PurgeBuf" // BRCB
	AttrEntryID  = "EntryID"  // BRCB
)

// Kind distinguishes unbuffered (URCB) from buffered (BRCB) report control
// blocks; the two differ in their reservation attribute and a couple of
// buffered-only attributes.
type Kind int

const (
	Unbuffered Kind = iota
	Buffered
)

// Step names one of the eight ordered enable_rcb writes, reported in
// EnableFailedError so the orchestrator can log which step a partial
// subscription stopped at.
type Step int

const (
	StepRead Step = iota
	StepDisable
	StepReserve
	StepOptFlds
	StepTrgOps
	StepBuffering
	StepGeneralInterrogation
	StepEnable
)

func (s Step) String() string {
	switch s {
	case StepRead:
		return "read"
	case StepDisable:
		return "disable"
	case StepReserve:
		return "reserve"
	case StepOptFlds:
		return "opt-flds"
	case StepTrgOps:
		return "trg-ops"
	case StepBuffering:
		return "buffering"
	case StepGeneralInterrogation:
		return "general-interrogation"
	case StepEnable:
		return "enable"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// EnableFailedError reports which RCB and which step of the enable sequence
// failed, and the underlying service error. The orchestrator treats this as
// non-fatal: subscription continues with the remaining configured RCBs.
type EnableFailedError struct {
	RCB   string
	Step  Step
	Cause error
}

func (e *EnableFailedError) Error() string {
	return fmt.Sprintf("rcb: %s: enable failed at step %s: %v", e.RCB, e.Step, e.Cause)
}

func (e *EnableFailedError) Unwrap() error { return e.Cause }

// Config carries the parameters of the enable_rcb dance that an operator may
// want to tune per deployment.
type Config struct {
	Kind               Kind
	IntegrityPeriodMs  uint32
	RequestReservation bool // BRCB only: write ResvTms rather than skip reservation
}

// DefaultConfig matches the default inclusion policy and integrity period
// documented for enable_rcb.
func DefaultConfig() Config {
	return Config{IntegrityPeriodMs: 10000, RequestReservation: true}
}

// Accessor is the subset of the orchestrator's MMS round-trip this package
// needs: read and write a single named variable. Implemented by the root
// Client so this package stays transport-agnostic and independently
// testable against a fake.
type Accessor interface {
	Read(ctx context.Context, name mms.ObjectName) (mms.AccessResult, error)
	Write(ctx context.Context, name mms.ObjectName, value mmsvalue.Value) error
}

// optFldsBits is the OptFlds value the enable dance writes: sequence-number,
// report-time-stamp, reason-for-inclusion, data-set-name, data-reference,
// buffer-overflow, entryID, conf-revision set; reserved and segmentation
// clear — 0b0111111110.
func optFldsBits() []bool {
	return report.DefaultOptFlds()
}

// trgOpsBits sets data-change, quality-change, integrity and
// general-interrogation. The standard's TrgOps bit-string also has a
// data-update bit between quality-change and integrity that this client
// never requests, since no configured RCB here reports on data-update.
func trgOpsBits() []bool {
	// bit 0 reserved, 1 data-change, 2 quality-change, 3 data-update,
	// 4 integrity, 5 general-interrogation.
	return []bool{false, true, true, false, true, true}
}

// Enable runs the eight-step enable_rcb sequence against the RCB named by
// domain/item. All eight writes for this RCB complete before Enable
// returns, so server-side resource allocation for the next RCB is
// deterministic. A failing step returns *EnableFailedError; the caller
// decides whether to continue with other RCBs.
func Enable(ctx context.Context, acc Accessor, domain, item string, cfg Config) error {
	name := mms.ObjectName{Domain: domain, Item: item}
	fail := func(step Step, cause error) error {
		return &EnableFailedError{RCB: name.String(), Step: step, Cause: cause}
	}

	current, err := readCurrentState(ctx, acc, domain, item)
	if err != nil {
		return fail(StepRead, err)
	}

	if current.rptEna {
		if err := acc.Write(ctx, mms.ObjectName{Domain: domain, Item: item + ".RptEna"}, mmsvalue.Bool(false)); err != nil {
			if !isIgnorableDisableError(cfg.Kind, err) {
				return fail(StepDisable, err)
			}
		}
	}

	if cfg.Kind == Unbuffered {
		if err := acc.Write(ctx, mms.ObjectName{Domain: domain, Item: item + "." + AttrResv}, mmsvalue.Bool(true)); err != nil {
			return fail(StepReserve, err)
		}
	} else if cfg.RequestReservation {
		if err := acc.Write(ctx, mms.ObjectName{Domain: domain, Item: item + "." + AttrResvTms}, mmsvalue.Uint(60)); err != nil {
			return fail(StepReserve, err)
		}
	}

	if err := acc.Write(ctx, mms.ObjectName{Domain: domain, Item: item + "." + AttrOptFlds}, mmsvalue.Bits(optFldsBits())); err != nil {
		return fail(StepOptFlds, err)
	}

	if err := acc.Write(ctx, mms.ObjectName{Domain: domain, Item: item + "." + AttrTrgOps}, mmsvalue.Bits(trgOpsBits())); err != nil {
		return fail(StepTrgOps, err)
	}

	if err := acc.Write(ctx, mms.ObjectName{Domain: domain, Item: item + "." + AttrBufTm}, mmsvalue.Uint(0)); err != nil {
		return fail(StepBuffering, err)
	}
	if err := acc.Write(ctx, mms.ObjectName{Domain: domain, Item: item + "." + AttrIntgPd}, mmsvalue.Uint(uint64(cfg.IntegrityPeriodMs))); err != nil {
		return fail(StepBuffering, err)
	}

	if err := acc.Write(ctx, mms.ObjectName{Domain: domain, Item: item + "." + AttrGI}, mmsvalue.Bool(true)); err != nil {
		return fail(StepGeneralInterrogation, err)
	}

	if err := acc.Write(ctx, mms.ObjectName{Domain: domain, Item: item + "." + AttrRptEna}, mmsvalue.Bool(true)); err != nil {
		return fail(StepEnable, err)
	}

	return nil
}

type currentState struct {
	rptEna bool
}

func readCurrentState(ctx context.Context, acc Accessor, domain, item string) (currentState, error) {
	var st currentState
	for _, attr := range []string{AttrRptEna, AttrResv, AttrDatSet, AttrConfRev, AttrOptFlds, AttrTrgOps, AttrBufTm, AttrIntgPd, AttrGI, AttrRptID} {
		result, err := acc.Read(ctx, mms.ObjectName{Domain: domain, Item: item + "." + attr})
		if err != nil {
			return currentState{}, fmt.Errorf("rcb: read %s: %w", attr, err)
		}
		if attr == AttrRptEna && result.Success {
			st.rptEna = result.Value.AsBool()
		}
	}
	return st, nil
}

// isIgnorableDisableError reports whether an object-access-denied response
// to the disable write should be ignored: for an unbuffered RCB this client
// does not own, the server may refuse the write outright rather than
// returning success with RptEna left true.
func isIgnorableDisableError(kind Kind, err error) bool {
	if kind != Unbuffered {
		return false
	}
	var code mms.DataAccessErrorCode
	if errors.As(err, &code) {
		return code == mms.ObjectAccessDenied
	}
	return false
}
