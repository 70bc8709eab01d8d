// Package rpc broadcasts the transport position over the network, so a
// lighting rig or projection machine can follow the performance. One machine
// runs the Receiver, the performing machine streams its play state to it.
package rpc

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"net/rpc"
)

const syncPort = ":31642"

// State is one snapshot of the transport, sent a few times per second while
// playing.
type State struct {
	Playing   bool
	Bank      int
	StepIndex int
	Pass      int
	Beat      int
	Progress  float32
	SongPos   float32
}

type SyncServer struct {
	channel chan State
}

func (s *SyncServer) Sync(state State, reply *int) error {
	select {
	case s.channel <- state:
	default:
	}
	return nil
}

// Receiver starts listening for transport snapshots and returns the channel
// they arrive on. The channel closes when the listener dies.
func Receiver() (<-chan State, error) {
	c := make(chan State, 1)
	server := &SyncServer{channel: c}
	rpc.Register(server)
	rpc.HandleHTTP()
	l, err := net.Listen("tcp", syncPort)
	if err != nil {
		return nil, fmt.Errorf("net.Listen failed: %w", err)
	}
	go func() {
		defer close(c)
		http.Serve(l, nil)
	}()
	return c, nil
}

// Sender connects to a Receiver on the given address and returns a channel
// to push snapshots into. Snapshots that fail to send are dropped with a log
// line; a flaky network must not take the performance down.
func Sender(serverAddress string) (chan<- State, error) {
	c := make(chan State, 256)
	client, err := rpc.DialHTTP("tcp", serverAddress+syncPort)
	if err != nil {
		return nil, fmt.Errorf("rpc.DialHTTP failed: %w", err)
	}
	go func() {
		for msg := range c {
			var reply int
			if err := client.Call("SyncServer.Sync", msg, &reply); err != nil {
				log.Println("SyncServer.Sync error:", err)
			}
		}
	}()
	return c, nil
}
