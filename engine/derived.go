package engine

import (
	"github.com/padloop/padloop"
)

// derivedModelData is computed from the model data after every change, so
// that views and bindings never have to walk the whole project on each read.
type derivedModelData struct {
	// patternUseCount counts, per pattern id, how many steps across all
	// banks have the pattern active.
	patternUseCount map[int]int

	// stepDurations holds the duration of each step of the current bank,
	// repeats included, in seconds.
	stepDurations []float64

	// totalDuration is the sum of stepDurations.
	totalDuration float64
}

func (m *Model) updateDerived(t ChangeType) {
	if t&(PatternChange|ArrangementChange) != 0 {
		m.updatePatternUseCount()
	}
	if t&(PatternChange|ArrangementChange|ParamsChange) != 0 {
		m.updateDurations()
	}
}

func (m *Model) updatePatternUseCount() {
	counts := make(map[int]int)
	for _, b := range m.d.Project.Banks {
		for _, s := range b.Arrangement {
			for _, id := range s.ActivePatternIDs {
				counts[id]++
			}
		}
	}
	m.derived.patternUseCount = counts
}

func (m *Model) updateDurations() {
	arr := m.currentBank().Arrangement
	m.derived.stepDurations = m.derived.stepDurations[:0]
	m.derived.totalDuration = 0
	for i := range arr {
		d := m.d.Project.StepDuration(&arr[i])
		m.derived.stepDurations = append(m.derived.stepDurations, d)
		m.derived.totalDuration += d
	}
}

// PatternUseCount returns how many arrangement steps reference the pattern.
func (m *Model) PatternUseCount(id int) int {
	return m.derived.patternUseCount[id]
}

// StepDuration returns the duration of the step at index in the current
// bank, in seconds, or 0 if out of range.
func (m *Model) StepDuration(index int) float64 {
	if index < 0 || index >= len(m.derived.stepDurations) {
		return 0
	}
	return m.derived.stepDurations[index]
}

// SongDuration returns the total duration of the current bank's arrangement
// in seconds.
func (m *Model) SongDuration() float64 { return m.derived.totalDuration }

// Pattern returns the pattern with the given id, for display purposes.
func (m *Model) Pattern(id int) (*padloop.Pattern, bool) {
	return m.d.Project.Pattern(id)
}

// Bank returns the currently selected bank for display purposes.
func (m *Model) Bank() *padloop.Bank { return m.currentBank() }
