package cotp

import (
	"context"
	"net"
	"testing"

	"github.com/slonegd/mmsreportd/internal/tpkt"
)

func TestConnectSendsCRAndParsesCC(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := New(tpkt.New(client), DefaultParams())

	serverDone := make(chan error, 1)
	go func() {
		frame, err := tpkt.New(server).Recv(context.Background())
		if err != nil {
			serverDone <- err
			return
		}
		if len(frame) < 2 || frame[1] != tpduCR {
			serverDone <- errNotCR(frame)
			return
		}
		srcRef := frame[4:6]
		cc := []byte{0x06, tpduCC, srcRef[0], srcRef[1], 0x00, 0x01, 0x00}
		serverDone <- tpkt.New(server).Send(cc)
	}()

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("server side: %v", err)
	}
	if conn.RemoteRef() != 1 {
		t.Errorf("RemoteRef = %d, want 1", conn.RemoteRef())
	}
}

func errNotCR(frame []byte) error {
	return &notCRError{frame}
}

type notCRError struct{ frame []byte }

func (e *notCRError) Error() string { return "expected CR TPDU" }

func TestSendDataFragmentsAndRecvReassembles(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	small := Params{SrcTSAP: DefaultTSAP, DstTSAP: DefaultTSAP, TpduSize: 8}
	sender := New(tpkt.New(client), small)
	receiver := New(tpkt.New(server), small)

	payload := []byte("0123456789abcdef") // longer than the 5-byte fragment budget

	done := make(chan error, 1)
	go func() { done <- sender.SendData(payload) }()

	got, err := receiver.RecvData(context.Background())
	if err != nil {
		t.Fatalf("RecvData: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("reassembled = %q, want %q", got, payload)
	}
}
