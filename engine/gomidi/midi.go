package gomidi

import (
	"fmt"
	"strings"

	"github.com/padloop/padloop/engine"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	// RTMIDIContext implements engine.MIDIContext on top of rtmidi. Note
	// events from the open input device are forwarded to the player.
	RTMIDIContext struct {
		driver    *rtmididrv.Driver
		currentIn drivers.In
		broker    *engine.Broker
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}
)

func NewMIDIContext(broker *engine.Broker) *RTMIDIContext {
	m := RTMIDIContext{broker: broker}
	// if the driver fails to initialize, we just don't have a MIDI context
	m.driver, _ = rtmididrv.New()
	return &m
}

func (m *RTMIDIContext) InputDevices(yield func(engine.MIDIDevice) bool) {
	if m.driver == nil {
		return
	}
	ins, err := m.driver.Ins()
	if err != nil {
		return
	}
	for i := 0; i < len(ins); i++ {
		device := RTMIDIDevice{context: m, in: ins[i]}
		if !yield(device) {
			break
		}
	}
}

// TryToOpenBy opens the first input device whose name starts with namePrefix,
// or just the first device when takeFirst is set. With an empty prefix and
// takeFirst false it does nothing.
func (m *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) bool {
	if namePrefix == "" && !takeFirst {
		return false
	}
	opened := false
	m.InputDevices(func(device engine.MIDIDevice) bool {
		if takeFirst || (namePrefix != "" && strings.HasPrefix(device.String(), namePrefix)) {
			opened = device.Open() == nil
			return false
		}
		return true
	})
	return opened
}

func (d RTMIDIDevice) Open() error {
	m := d.context
	if m.currentIn == d.in {
		return nil
	}
	if m.HasDeviceOpen() {
		m.currentIn.Close()
	}
	m.currentIn = d.in
	if err := d.in.Open(); err != nil {
		m.currentIn = nil
		return fmt.Errorf("opening MIDI input %s failed: %w", d.in.String(), err)
	}
	if _, err := midi.ListenTo(d.in, m.handleMessage); err != nil {
		d.in.Close()
		m.currentIn = nil
		return fmt.Errorf("listening to MIDI input %s failed: %w", d.in.String(), err)
	}
	return nil
}

func (d RTMIDIDevice) String() string { return d.in.String() }

func (m *RTMIDIContext) HasDeviceOpen() bool { return m.currentIn != nil }

func (m *RTMIDIContext) handleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	if msg.GetNoteOn(&channel, &key, &velocity) {
		engine.TrySend(m.broker.ToPlayer, any(engine.MIDINoteMsg{Note: key, Velocity: velocity, On: true}))
	} else if msg.GetNoteOff(&channel, &key, &velocity) {
		engine.TrySend(m.broker.ToPlayer, any(engine.MIDINoteMsg{Note: key, Velocity: velocity, On: false}))
	}
}

func (m *RTMIDIContext) Close() {
	if m.driver == nil {
		return
	}
	if m.currentIn != nil && m.currentIn.IsOpen() {
		m.currentIn.Close()
	}
	m.driver.Close()
}
