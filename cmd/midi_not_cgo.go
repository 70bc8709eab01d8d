//go:build !cgo

package cmd

import (
	"github.com/padloop/padloop/engine"
)

func NewMidiContext(broker *engine.Broker) engine.MIDIContext {
	// with no cgo, we cannot use MIDI, so return a null context
	return engine.NullMIDIContext{}
}
