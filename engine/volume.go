package engine

import (
	"math"

	"github.com/padloop/padloop"
)

const sampleRate = 44100

// VolumeAnalyzer measures the volume of an audio stream in decibels relative
// to full scale (dBFS), smoothed with separate attack and release time
// constants so the reading rises quickly and falls back slowly.
type VolumeAnalyzer struct {
	Volume   [2]float64 // left and right volume, in dBFS
	Attack   float64    // attack time constant, in seconds
	Release  float64    // release time constant, in seconds
	Min, Max float64    // clamp range of the measurement, in dBFS
}

// Update computes the volume of an audio buffer and updates the running
// smoothed measurement.
func (v *VolumeAnalyzer) Update(buffer padloop.AudioBuffer) {
	alphaAttack := 1 - math.Exp(-1.0/(sampleRate*v.Attack))
	alphaRelease := 1 - math.Exp(-1.0/(sampleRate*v.Release))
	for j := 0; j < 2; j++ {
		vol := v.Volume[j]
		for i := 0; i < len(buffer); i++ {
			sample2 := float64(buffer[i][j]) * float64(buffer[i][j])
			dB := 10 * math.Log10(sample2+1e-24)
			if dB < v.Min {
				dB = v.Min
			}
			if dB > v.Max {
				dB = v.Max
			}
			if dB > vol {
				vol += (dB - vol) * alphaAttack
			} else {
				vol += (dB - vol) * alphaRelease
			}
		}
		v.Volume[j] = vol
	}
}

// Reset drops the measurement back to the floor.
func (v *VolumeAnalyzer) Reset() {
	v.Volume = [2]float64{v.Min, v.Min}
}
