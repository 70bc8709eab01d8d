package padloop

import "math"

// BeatsPerBar is fixed: all patterns are in 4/4.
const BeatsPerBar = 4

// PatternBarOptions are the allowed pattern lengths, in bars.
var PatternBarOptions = []int{1, 2, 4, 8}

// BeatDuration returns the length of one beat in seconds, at the given tempo
// in beats per minute.
func BeatDuration(bpm float64) float64 {
	return 60 / bpm
}

// Duration returns the length of one full cycle of the pattern in seconds.
func (p *Pattern) Duration(bpm float64) float64 {
	return BeatDuration(bpm) * BeatsPerBar * float64(p.Bars)
}

// StepDuration returns the length of the step in seconds: the duration of its
// longest active pattern, times the repeat count. Steps with no resolvable
// active patterns have duration 0; the scheduler treats that as an invalid
// timing state. Shorter concurrent patterns cycle multiple times inside the
// step (see iteration handling in the engine package).
func (s *Project) StepDuration(step *SongStep) float64 {
	longest := 0.0
	for _, id := range step.ActivePatternIDs {
		if pat, ok := s.Pattern(id); ok {
			if d := pat.Duration(s.BPM); d > longest {
				longest = d
			}
		}
	}
	return longest * float64(max(step.Repeats, 1))
}

// TotalDuration returns the length of the whole arrangement of the given bank
// in seconds, or 0 if the bank index is out of range.
func (s *Project) TotalDuration(bank int) float64 {
	if bank < 0 || bank >= len(s.Banks) {
		return 0
	}
	var total float64
	for i := range s.Banks[bank].Arrangement {
		total += s.StepDuration(&s.Banks[bank].Arrangement[i])
	}
	return total
}

// QuantizeEpsilon is subtracted from a quantized offset that would land on or
// after the end of the pattern, keeping the hit inside the current loop
// instead of wrapping it to the next pass.
const QuantizeEpsilon = 1e-4

// Grid steps for quantized recording, in beats. GridOff records raw offsets.
const (
	GridOff       = 0.0
	GridEighth    = 0.5
	GridSixteenth = 0.25
)

// QuantizeBeatOffset snaps a raw beat offset to the given grid (in beats; 0
// disables snapping) and keeps the result inside [0, bars*BeatsPerBar). An
// offset that rounds onto or past the loop boundary is pulled back just below
// it rather than wrapped to the next pass.
func QuantizeBeatOffset(raw, grid float64, bars int) float64 {
	off := raw
	if grid > 0 {
		off = math.Round(raw/grid) * grid
	}
	limit := float64(bars * BeatsPerBar)
	if off >= limit {
		off = limit - QuantizeEpsilon
	}
	if off < 0 {
		off = 0
	}
	return off
}
