package engine

import (
	"fmt"

	"github.com/padloop/padloop"
)

type (
	// PatternsModel provides the bindings for the pattern pool: selecting
	// the current pattern, editing its properties, and managing the pool.
	PatternsModel Model

	patternList Model
	patternName Model
	patternBars Model

	addPattern       Model
	duplicatePattern Model
	deletePattern    Model
	clearHits        Model
)

func (m *Model) Patterns() *PatternsModel { return (*PatternsModel)(m) }

func (v *PatternsModel) List() List        { return MakeList((*patternList)(v)) }
func (v *PatternsModel) Name() String      { return MakeString((*patternName)(v)) }
func (v *PatternsModel) Bars() Int         { return MakeInt((*patternBars)(v)) }
func (v *PatternsModel) Add() Action       { return MakeAction((*addPattern)(v)) }
func (v *PatternsModel) Duplicate() Action { return MakeAction((*duplicatePattern)(v)) }
func (v *PatternsModel) Delete() Action    { return MakeAction((*deletePattern)(v)) }
func (v *PatternsModel) ClearHits() Action { return MakeAction((*clearHits)(v)) }

// HitCount returns the number of hits in the currently selected pattern.
func (v *PatternsModel) HitCount() int {
	m := (*Model)(v)
	if pat := m.currentPattern(); pat != nil {
		return len(pat.Hits)
	}
	return 0
}

func (v *patternList) Selected() int {
	if i := v.d.Project.PatternIndex(v.d.PatternID); i >= 0 {
		return i
	}
	return 0
}

func (v *patternList) SetSelected(value int) {
	if value < 0 || value >= len(v.d.Project.Patterns) {
		return
	}
	v.d.PatternID = v.d.Project.Patterns[value].ID
	v.d.ChangedSinceRecovery = true
	TrySend(v.broker.ToPlayer, any(CurrentPatternMsg{v.d.PatternID}))
}

func (v *patternList) Count() int { return len(v.d.Project.Patterns) }

func (v *patternList) Change(kind string, severity ChangeSeverity) func() {
	return (*Model)(v).change(kind, PatternChange|ArrangementChange, severity)
}

func (v *patternList) Cancel() { v.changeCancel = true }

func (v *patternList) Move(r Range, delta int) bool {
	pats := v.d.Project.Patterns
	for i, j := range r.Swaps(delta) {
		if i < 0 || j < 0 || i >= len(pats) || j >= len(pats) {
			return false
		}
		pats[i], pats[j] = pats[j], pats[i]
	}
	return true
}

func (v *patternList) Delete(r Range) bool {
	if r.Start < 0 || r.End > len(v.d.Project.Patterns) {
		return false
	}
	ids := make([]int, 0, r.Len())
	for _, p := range v.d.Project.Patterns[r.Start:r.End] {
		ids = append(ids, p.ID)
	}
	for _, id := range ids {
		v.d.Project.DeletePattern(id)
	}
	return true
}

func (v *patternName) Value() string {
	if pat := (*Model)(v).currentPattern(); pat != nil {
		return pat.Name
	}
	return ""
}

func (v *patternName) SetValue(value string) bool {
	m := (*Model)(v)
	pat := m.currentPattern()
	if pat == nil {
		return false
	}
	defer m.change("PatternNameString", PatternChange, MinorChange)()
	pat.Name = value
	return true
}

func (v *patternBars) Value() int {
	if pat := (*Model)(v).currentPattern(); pat != nil {
		for i, b := range padloop.PatternBarOptions {
			if pat.Bars == b {
				return i
			}
		}
	}
	return 0
}

// SetValue resizes the pattern. Hits past the new end are kept; the
// scheduler plays them inside a later iteration of the loop.
func (v *patternBars) SetValue(value int) bool {
	m := (*Model)(v)
	pat := m.currentPattern()
	if pat == nil {
		return false
	}
	defer m.change("PatternBarsInt", PatternChange, MajorChange)()
	pat.Bars = padloop.PatternBarOptions[value]
	return true
}

func (v *patternBars) Range() RangeInclusive {
	return RangeInclusive{0, len(padloop.PatternBarOptions) - 1}
}

func (v *patternBars) StringOf(value int) string {
	if value < 0 || value >= len(padloop.PatternBarOptions) {
		return ""
	}
	return fmt.Sprintf("%d bar(s)", padloop.PatternBarOptions[value])
}

func (v *addPattern) Do() {
	m := (*Model)(v)
	defer m.change("AddPattern", PatternChange, MajorChange)()
	id := m.nextID()
	m.d.Project.Patterns = append(m.d.Project.Patterns, padloop.Pattern{
		ID:   id,
		Name: fmt.Sprintf("Pattern %d", id),
		Bars: 1,
	})
	m.d.PatternID = id
}

func (v *duplicatePattern) Do() {
	m := (*Model)(v)
	src := m.currentPattern()
	if src == nil {
		return
	}
	defer m.change("DuplicatePattern", PatternChange, MajorChange)()
	dup := src.Copy()
	dup.ID = m.nextID()
	dup.Name = src.Name + " copy"
	m.d.Project.Patterns = append(m.d.Project.Patterns, dup)
	m.d.PatternID = dup.ID
}

func (v *duplicatePattern) Enabled() bool { return len(v.d.Project.Patterns) > 0 }

func (v *deletePattern) Do() {
	m := (*Model)(v)
	pat := m.currentPattern()
	if pat == nil {
		return
	}
	defer m.change("DeletePattern", PatternChange|ArrangementChange, MajorChange)()
	m.d.Project.DeletePattern(pat.ID)
	if len(m.d.Project.Patterns) > 0 {
		m.d.PatternID = m.d.Project.Patterns[0].ID
	} else {
		m.d.PatternID = 0
	}
	TrySend(m.broker.ToPlayer, any(CurrentPatternMsg{m.d.PatternID}))
}

func (v *deletePattern) Enabled() bool { return len(v.d.Project.Patterns) > 0 }

func (v *clearHits) Do() {
	m := (*Model)(v)
	pat := m.currentPattern()
	if pat == nil {
		return
	}
	defer m.change("ClearHits", PatternChange, MajorChange)()
	pat.Hits = pat.Hits[:0]
}

func (v *clearHits) Enabled() bool {
	if pat := (*Model)(v).currentPattern(); pat != nil {
		return len(pat.Hits) > 0
	}
	return false
}
