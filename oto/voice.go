package oto

import (
	"math"

	"github.com/padloop/padloop"
)

// envRate scales the exponential envelope so a voice decays to the silence
// threshold (-60 dB) in exactly Tone.Decay seconds.
var envRate = math.Log(1000)

// voice is one sounding percussion tone: a sine partial mixed with noise,
// shaped by an exponential decay envelope.
type voice struct {
	handle  padloop.VoiceHandle
	start   int64 // first frame
	length  int64 // frames until inaudible
	stopped bool

	freq  float64
	decay float64 // seconds to silence
	noise float64
	gain  float64
	rng   uint32
}

func newVoice(handle padloop.VoiceHandle, tone padloop.Tone, velocity float32, start int64) *voice {
	decay := tone.Decay
	if decay <= 0 {
		decay = 0.05
	}
	length := int64(decay * sampleRate)
	if length < 1 {
		length = 1
	}
	return &voice{
		handle: handle,
		start:  start,
		length: length,
		freq:   tone.Pitch,
		decay:  decay,
		noise:  min(max(tone.Noise, 0), 1),
		gain:   tone.Level * float64(min(max(velocity, 0), 1)),
		rng:    uint32(handle)*2654435761 + 1,
	}
}

// render mixes the voice into buf, which starts at the given absolute frame.
// Returns whether the voice still has audio left after this buffer.
func (v *voice) render(buf padloop.AudioBuffer, start int64) bool {
	end := v.start + v.length
	if end <= start {
		return false
	}
	i0 := 0
	if v.start > start {
		if v.start >= start+int64(len(buf)) {
			return true // not due yet
		}
		i0 = int(v.start - start)
	}
	n := len(buf)
	if left := end - start; left < int64(n) {
		n = int(left)
	}
	for i := i0; i < n; i++ {
		t := float64(start+int64(i)-v.start) / sampleRate
		env := math.Exp(-t * envRate / v.decay)
		s := math.Sin(2*math.Pi*v.freq*t) * (1 - v.noise)
		if v.noise > 0 {
			s += v.noiseSample() * v.noise
		}
		sample := float32(s * env * v.gain)
		buf[i][0] += sample
		buf[i][1] += sample
	}
	return end > start+int64(len(buf))
}

// noiseSample is a xorshift32 noise generator in [-1, 1).
func (v *voice) noiseSample() float64 {
	v.rng ^= v.rng << 13
	v.rng ^= v.rng >> 17
	v.rng ^= v.rng << 5
	return float64(int32(v.rng)) / (1 << 31)
}

func clickTone(accented bool) padloop.Tone {
	if accented {
		return padloop.Tone{Pitch: 1760, Decay: 0.05, Level: 0.6}
	}
	return padloop.Tone{Pitch: 1320, Decay: 0.035, Level: 0.4}
}
