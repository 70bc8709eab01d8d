package rpc_test

import (
	"testing"

	"github.com/padloop/padloop/rpc"
)

func TestSendReceive(t *testing.T) {
	receiver, err := rpc.Receiver()
	if err != nil {
		t.Fatalf("rpc.Receiver error: %v", err)
	}
	sender, err := rpc.Sender("127.0.0.1")
	if err != nil {
		t.Fatalf("rpc.Sender error: %v", err)
	}
	value := rpc.State{Playing: true, StepIndex: 3, Beat: 7, Progress: 0.25}
	sender <- value
	valueGot := <-receiver
	if valueGot != value {
		t.Fatalf("got %v, sent %v", valueGot, value)
	}
}
