package padloop

// NumBanks is the number of parallel bank slots in a project. Each bank pairs
// one arrangement with one pad kit.
const NumBanks = 4

// NumPads is the number of pads in a kit.
const NumPads = 16

type (
	// Tone describes the percussive sound of a pad: a sine partial at Pitch
	// Hz mixed with noise (Noise in [0,1]), with an exponential amplitude
	// decay of Decay seconds and overall gain Level. The audio backend
	// synthesizes voices from these parameters, so projects carry their
	// sounds without any sample data.
	Tone struct {
		Pitch float64
		Decay float64
		Noise float64 `yaml:",omitempty"`
		Level float64
	}

	// Pad is one trigger surface of a kit. Note is the MIDI note number that
	// triggers it.
	Pad struct {
		Name string `yaml:",omitempty"`
		Note byte
		Tone Tone `yaml:",flow"`
	}

	// Bank couples an arrangement with the pad kit it plays.
	Bank struct {
		Name        string `yaml:",omitempty"`
		Pads        []Pad
		Arrangement Arrangement `yaml:",omitempty"`
	}
)

func (b *Bank) Copy() Bank {
	pads := make([]Pad, len(b.Pads))
	copy(pads, b.Pads)
	return Bank{Name: b.Name, Pads: pads, Arrangement: b.Arrangement.Copy()}
}

// Pad returns the pad at index, or false if the kit has no such pad.
func (b *Bank) Pad(index int) (*Pad, bool) {
	if index < 0 || index >= len(b.Pads) {
		return nil, false
	}
	return &b.Pads[index], true
}
