package engine

type (
	// MIDIContext is the hookup for an external pad controller.
	// Implementations list the available input devices and open one; an open
	// device pushes its note events to the player through the broker. Notes
	// map to pads by each pad's Note number.
	MIDIContext interface {
		InputDevices(yield func(MIDIDevice) bool)
		TryToOpenBy(namePrefix string, takeFirst bool) bool
		HasDeviceOpen() bool
		Close()
	}

	MIDIDevice interface {
		String() string
		Open() error
	}

	// MIDINoteMsg is one note event from the controller.
	MIDINoteMsg struct {
		Note     byte
		Velocity byte
		On       bool
	}

	// NullMIDIContext is used when no MIDI backend is compiled in or the
	// driver failed to initialize.
	NullMIDIContext struct{}
)

func (NullMIDIContext) InputDevices(yield func(MIDIDevice) bool)           {}
func (NullMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) bool { return false }
func (NullMIDIContext) HasDeviceOpen() bool                                { return false }
func (NullMIDIContext) Close()                                             {}
