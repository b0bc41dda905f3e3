// Package mmsreportd implements an IEC 61850 MMS reporting client: it opens
// a TPKT/COTP/MMS connection to an IED, subscribes to one or more Report
// Control Blocks, and decodes the informationReport PDUs the IED pushes for
// as long as the connection stays up.
package mmsreportd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/slonegd/mmsreportd/internal/cotp"
	"github.com/slonegd/mmsreportd/internal/mms"
	"github.com/slonegd/mmsreportd/internal/mmsvalue"
	"github.com/slonegd/mmsreportd/internal/tpkt"
	"github.com/slonegd/mmsreportd/logger"
	"github.com/slonegd/mmsreportd/metrics"
	"github.com/slonegd/mmsreportd/rcb"
	"github.com/slonegd/mmsreportd/report"
	"github.com/slonegd/mmsreportd/sink"
)

// State names a point in the connection lifecycle: Idle -> TcpUp -> CotpUp
// -> MmsUp -> Subscribed -> Closed.
type State int

const (
	Idle State = iota
	TcpUp
	CotpUp
	MmsUp
	Subscribed
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case TcpUp:
		return "tcp-up"
	case CotpUp:
		return "cotp-up"
	case MmsUp:
		return "mms-up"
	case Subscribed:
		return "subscribed"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	connectTimeout     = 5 * time.Second
	cotpTimeout        = 5 * time.Second
	mmsExchangeTimeout = 10 * time.Second
	idleReadTimeout    = 60 * time.Second
)

// RCBSpec names one RCB to enable on Subscribe.
type RCBSpec struct {
	Domain string
	Item   string
	Kind   rcb.Kind
}

// Client drives one IED connection. It is not safe for concurrent use: all
// protocol state belongs to the single goroutine that calls Connect,
// Initiate, Subscribe and Run in sequence, matching the cooperative,
// single-threaded model this client's transport layers assume.
type Client struct {
	domain string

	conn     net.Conn
	tp       *tpkt.Conn
	cotpConn *cotp.Connection

	logger  logger.Logger
	metrics *metrics.Collector
	sink    sink.Sink
	labels  report.DatasetLabels

	state    State
	invokeID uint32

	integrityPeriodMs uint32
}

// Option customizes a new Client.
type Option func(*Client)

func WithLogger(l logger.Logger) Option { return func(c *Client) { c.logger = l } }
func WithMetrics(m *metrics.Collector) Option { return func(c *Client) { c.metrics = m } }
func WithSink(s sink.Sink) Option { return func(c *Client) { c.sink = s } }
func WithDatasetLabels(l report.DatasetLabels) Option { return func(c *Client) { c.labels = l } }
func WithIntegrityPeriodMs(ms uint32) Option {
	return func(c *Client) { c.integrityPeriodMs = ms }
}

// New builds a Client addressing domain, the logical device this client
// reads and writes RCB attributes against.
func New(domain string, opts ...Option) *Client {
	c := &Client{
		domain:            domain,
		state:             Idle,
		labels:            report.DatasetLabels{},
		integrityPeriodMs: rcb.DefaultConfig().IntegrityPeriodMs,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.NewLogger("mmsreportd")
	}
	return c
}

// State reports the client's current lifecycle position.
func (c *Client) State() State { return c.state }

// Connect dials host:port and runs the COTP connect-request/confirm
// handshake. On success the client is in CotpUp.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return &TransportError{Cause: err}
	}
	c.conn = conn
	c.tp = tpkt.New(conn)
	c.state = TcpUp
	c.logger.Debug("tcp connected to %s", addr)

	c.cotpConn = cotp.New(c.tp, cotp.DefaultParams())
	cotpCtx, cancel2 := context.WithTimeout(ctx, cotpTimeout)
	defer cancel2()
	if err := c.cotpConn.Connect(cotpCtx); err != nil {
		c.conn.Close()
		if errors.Is(err, cotp.ErrRefused) {
			return &CotpRefusedError{Cause: err}
		}
		return &FramingError{Cause: err}
	}
	c.state = CotpUp
	c.logger.Debug("cotp connected, local-ref=%d remote-ref=%d", c.cotpConn.LocalRef(), c.cotpConn.RemoteRef())
	return nil
}

// Initiate negotiates the MMS association. On success the client is in
// MmsUp and ready to read/write RCB attributes.
func (c *Client) Initiate(ctx context.Context) error {
	req := mms.NewInitiateRequest()
	pdu, err := c.roundTrip(ctx, req.Bytes())
	if err != nil {
		return err
	}
	if pdu.Kind != mms.PduInitiateResponse {
		return &MmsProtocolError{Cause: fmt.Errorf("mmsreportd: initiate: got PDU kind %d, want InitiateResponse", pdu.Kind)}
	}
	c.state = MmsUp
	c.logger.Debug("mms association negotiated, version=%d", pdu.Initiate.NegotiatedVersionNumber)
	return nil
}

// nextInvokeID returns a fresh invokeID for a confirmed request. invokeIDs
// start at 1; 0 is never used so a zero-value Pdu can never look like a
// real response.
func (c *Client) nextInvokeID() uint32 {
	c.invokeID++
	return c.invokeID
}

// roundTrip sends one confirmed-RequestPDU and blocks for its response,
// matching the single-outstanding-request model this client uses during
// setup: one write, one read, no concurrent pending-request bookkeeping.
func (c *Client) roundTrip(ctx context.Context, requestBytes []byte) (mms.Pdu, error) {
	sendCtx, cancel := context.WithTimeout(ctx, mmsExchangeTimeout)
	defer cancel()

	if err := c.cotpConn.SendData(requestBytes); err != nil {
		return mms.Pdu{}, &TransportError{Cause: err}
	}

	raw, err := c.cotpConn.RecvData(sendCtx)
	if err != nil {
		if errors.Is(err, cotp.ErrPeerDisconnect) {
			return mms.Pdu{}, &FramingError{Cause: err}
		}
		return mms.Pdu{}, &TransportError{Cause: err}
	}
	if c.metrics != nil {
		c.metrics.BytesRead(len(raw))
	}

	pdu, err := mms.DecodePDU(raw)
	if err != nil {
		return mms.Pdu{}, &BerError{Cause: err}
	}
	if pdu.Kind == mms.PduConfirmedError {
		return mms.Pdu{}, &MmsServiceError{Cause: pdu.Error}
	}
	return pdu, nil
}

// Read implements rcb.Accessor: reads a single named variable.
func (c *Client) Read(ctx context.Context, name mms.ObjectName) (mms.AccessResult, error) {
	invokeID := c.nextInvokeID()
	pdu, err := c.roundTrip(ctx, mms.EncodeRead(invokeID, name))
	if err != nil {
		return mms.AccessResult{}, err
	}
	if len(pdu.Results) == 0 {
		return mms.AccessResult{}, &MmsProtocolError{Cause: fmt.Errorf("mmsreportd: read %s: empty result list", name)}
	}
	return pdu.Results[0], nil
}

// Write implements rcb.Accessor: writes a single named variable, returning
// the DataAccessErrorCode as an error when the IED rejects it.
func (c *Client) Write(ctx context.Context, name mms.ObjectName, value mmsvalue.Value) error {
	invokeID := c.nextInvokeID()
	pdu, err := c.roundTrip(ctx, mms.EncodeWrite(invokeID, name, value))
	if err != nil {
		return err
	}
	if len(pdu.Results) == 0 {
		return &MmsProtocolError{Cause: fmt.Errorf("mmsreportd: write %s: empty result list", name)}
	}
	result := pdu.Results[0]
	if !result.Success {
		return fmt.Errorf("mmsreportd: write %s: %w", name, result.Error)
	}
	return nil
}

// Subscribe runs the enable_rcb dance for every spec in order. A failure on
// one RCB is logged and counted, and subscription continues with the rest;
// Subscribe only returns an error if every RCB failed to enable.
func (c *Client) Subscribe(ctx context.Context, specs []RCBSpec) error {
	enabled := 0
	for _, spec := range specs {
		cfg := rcb.Config{
			Kind:               spec.Kind,
			IntegrityPeriodMs:  c.integrityPeriodMs,
			RequestReservation: true,
		}
		err := rcb.Enable(ctx, c, spec.Domain, spec.Item, cfg)
		if err != nil {
			var failed *rcb.EnableFailedError
			if errors.As(err, &failed) {
				c.logger.Debug("rcb %s/%s enable failed at %s: %v", spec.Domain, spec.Item, failed.Step, failed.Cause)
				if c.metrics != nil {
					c.metrics.RcbEnableFailed(failed.Step.String())
				}
				continue
			}
			return err
		}
		enabled++
		c.logger.Debug("rcb %s/%s enabled", spec.Domain, spec.Item)
	}
	if enabled == 0 && len(specs) > 0 {
		return fmt.Errorf("mmsreportd: subscribe: all %d configured RCBs failed to enable", len(specs))
	}
	c.state = Subscribed
	return nil
}

// reportOptFlds is the OptFlds this client always writes during enable_rcb,
// so every report this client decodes carries exactly this set of header
// fields.
var reportOptFlds = report.DecodeOptFlds(report.DefaultOptFlds())

// Run starts the receive loop: it blocks reading informationReport PDUs
// until ctx is canceled or a fatal transport/framing error occurs. An idle
// connection (no traffic for idleReadTimeout) is probed with an Identify
// keep-alive rather than treated as an error.
func (c *Client) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		readCtx, cancel := context.WithTimeout(ctx, idleReadTimeout)
		raw, err := c.cotpConn.RecvData(readCtx)
		cancel()

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if err := c.sendKeepAlive(ctx); err != nil {
					return err
				}
				continue
			}
			if errors.Is(err, cotp.ErrPeerDisconnect) {
				return &FramingError{Cause: err}
			}
			return &TransportError{Cause: err}
		}

		if c.metrics != nil {
			c.metrics.BytesRead(len(raw))
		}

		pdu, err := mms.DecodePDU(raw)
		if err != nil {
			c.logger.Debug("discarding unparsable PDU: %v", err)
			continue
		}

		switch pdu.Kind {
		case mms.PduInformationReport:
			c.handleReport(pdu.Report)
		case mms.PduConfirmedResponse, mms.PduConfirmedError:
			c.logger.Debug("discarding unsolicited confirmed PDU, invoke-id=%d", pdu.InvokeID)
		default:
			c.logger.Debug("discarding PDU of unexpected kind %d", pdu.Kind)
		}
	}
}

func (c *Client) sendKeepAlive(ctx context.Context) error {
	invokeID := c.nextInvokeID()
	if err := c.cotpConn.SendData(mms.EncodeIdentify(invokeID)); err != nil {
		return &TransportError{Cause: err}
	}
	c.logger.Debug("idle timeout, sent identify keep-alive, invoke-id=%d", invokeID)
	return nil
}

func (c *Client) handleReport(ir mms.InformationReport) {
	values := mms.Values(ir.Results)
	rpt, err := report.Decode(reportOptFlds, values)
	if err != nil {
		if errors.Is(err, report.ErrDecodeMismatch) {
			c.logger.Debug("report decode mismatch: %v", err)
			if c.metrics != nil {
				c.metrics.DecodeMismatch()
			}
		} else {
			c.logger.Debug("discarding unparsable report: %v", err)
			return
		}
	}

	datasetRef := ir.DatasetRef
	if rpt.DatasetRef != nil {
		datasetRef = *rpt.DatasetRef
	}
	report.AssignLabels(&rpt, c.labels, datasetRef)

	if c.metrics != nil {
		c.metrics.ReportDecoded()
	}

	if c.sink == nil {
		return
	}
	tsMs := time.Now().UnixMilli()
	if rpt.TimeOfEntry != nil {
		tsMs = rpt.TimeOfEntry.UnixMilli()
	}
	for _, e := range rpt.Entries {
		metric := e.Label
		if metric == "" {
			metric = fmt.Sprintf("index_%d", e.Index)
		}
		labels := map[string]string{"rpt_id": rpt.RptID}
		if datasetRef != "" {
			labels["dataset"] = datasetRef
		}
		s := sink.Sample{Metric: metric, Labels: labels, Value: e.Value.AsFloat64(), TimestampMs: tsMs}
		if err := c.sink.Push(context.Background(), s); err != nil {
			c.logger.Debug("sink push failed for %s: %v", metric, err)
		}
	}
}

// Close releases the transport. Closing the socket implicitly releases any
// server-side Resv reservation on an unbuffered RCB; no explicit unsubscribe
// is sent.
func (c *Client) Close() error {
	c.state = Closed
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
