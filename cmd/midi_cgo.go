//go:build cgo

package cmd

import (
	"github.com/padloop/padloop/engine"
	"github.com/padloop/padloop/engine/gomidi"
)

func NewMidiContext(broker *engine.Broker) engine.MIDIContext {
	return gomidi.NewMIDIContext(broker)
}
