package neverliie

import (
	"testing"

	"github.com/Liiesl/NeverLiie/transport"
)

func TestWireChannelSendRecvOverRealConn(t *testing.T) {
	a, b := transport.Direct()
	defer a.Close()
	defer b.Close()

	chA := newWireChannel(a)
	chB := newWireChannel(b)

	want := newRequestEnvelope("greet", []any{"hi"}, map[string]any{"loud": true})
	done := make(chan error, 1)
	go func() { done <- chA.Send(want) }()

	got, err := chB.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.Kind != want.Kind {
		t.Errorf("Kind = %v, want %v", got.Kind, want.Kind)
	}
	var body requestPayload
	if err := decodeJSON(got.Payload, &body); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if body.Method != "greet" || body.Kwargs["loud"] != true {
		t.Errorf("decoded payload = %+v, want method=greet kwargs.loud=true", body)
	}
}

func TestWireChannelCloseUnblocksPendingRecv(t *testing.T) {
	a, b := transport.Direct()
	defer a.Close()

	chB := newWireChannel(b)
	done := make(chan error, 1)
	go func() {
		_, err := chB.Recv()
		done <- err
	}()

	if err := chB.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := <-done; err == nil {
		t.Error("Recv on a closed channel returned nil error")
	}
}
