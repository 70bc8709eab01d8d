package engine

import "github.com/padloop/padloop"

// defaultKit is the pad layout every new bank starts with, a basic
// synthesized drum kit on the usual MIDI drum notes upward from 36.
var defaultKit = []padloop.Pad{
	{Name: "Kick", Note: 36, Tone: padloop.Tone{Pitch: 48, Decay: 0.5, Noise: 0.02, Level: 1}},
	{Name: "Kick 2", Note: 37, Tone: padloop.Tone{Pitch: 60, Decay: 0.3, Noise: 0.05, Level: 0.95}},
	{Name: "Snare", Note: 38, Tone: padloop.Tone{Pitch: 190, Decay: 0.22, Noise: 0.55, Level: 0.9}},
	{Name: "Rim", Note: 39, Tone: padloop.Tone{Pitch: 480, Decay: 0.07, Noise: 0.25, Level: 0.7}},
	{Name: "Clap", Note: 40, Tone: padloop.Tone{Pitch: 320, Decay: 0.16, Noise: 0.85, Level: 0.8}},
	{Name: "Tom Lo", Note: 41, Tone: padloop.Tone{Pitch: 95, Decay: 0.35, Noise: 0.08, Level: 0.85}},
	{Name: "Tom Mid", Note: 42, Tone: padloop.Tone{Pitch: 135, Decay: 0.3, Noise: 0.08, Level: 0.85}},
	{Name: "Tom Hi", Note: 43, Tone: padloop.Tone{Pitch: 180, Decay: 0.26, Noise: 0.08, Level: 0.85}},
	{Name: "Hat Cl", Note: 44, Tone: padloop.Tone{Pitch: 3600, Decay: 0.06, Noise: 0.95, Level: 0.55}},
	{Name: "Hat Op", Note: 45, Tone: padloop.Tone{Pitch: 3600, Decay: 0.4, Noise: 0.95, Level: 0.5}},
	{Name: "Ride", Note: 46, Tone: padloop.Tone{Pitch: 5200, Decay: 0.8, Noise: 0.7, Level: 0.45}},
	{Name: "Crash", Note: 47, Tone: padloop.Tone{Pitch: 4400, Decay: 1.2, Noise: 0.9, Level: 0.5}},
	{Name: "Perc 1", Note: 48, Tone: padloop.Tone{Pitch: 620, Decay: 0.12, Noise: 0.2, Level: 0.7}},
	{Name: "Perc 2", Note: 49, Tone: padloop.Tone{Pitch: 860, Decay: 0.1, Noise: 0.2, Level: 0.7}},
	{Name: "Cowbell", Note: 50, Tone: padloop.Tone{Pitch: 540, Decay: 0.18, Noise: 0.05, Level: 0.75}},
	{Name: "Shaker", Note: 51, Tone: padloop.Tone{Pitch: 6800, Decay: 0.09, Noise: 1, Level: 0.5}},
}

// defaultProject is what a fresh session starts from: one empty one-bar
// pattern, active and armed in a single step of bank A, ready to record.
var defaultProject = makeDefaultProject()

func makeDefaultProject() padloop.Project {
	p := padloop.Project{
		BPM:      120,
		Quantize: padloop.GridSixteenth,
		Patterns: []padloop.Pattern{{ID: 1, Name: "Pattern 1", Bars: 1}},
	}
	for b := 0; b < padloop.NumBanks; b++ {
		bank := padloop.Bank{
			Name: string(rune('A' + b)),
			Pads: make([]padloop.Pad, len(defaultKit)),
		}
		copy(bank.Pads, defaultKit)
		if b == 0 {
			bank.Arrangement = padloop.Arrangement{{
				ID:               2,
				Name:             "Step 1",
				ActivePatternIDs: []int{1},
				ArmedPatternID:   1,
				Repeats:          1,
			}}
		}
		p.Banks = append(p.Banks, bank)
	}
	return p
}
