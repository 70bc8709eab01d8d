package engine

import (
	"fmt"

	"github.com/padloop/padloop"
)

type (
	// ArrangementModel provides the bindings for the current bank's step
	// sequence: selecting steps, reordering them, and choosing which
	// patterns each step plays and which one is armed for recording.
	ArrangementModel Model

	stepList    Model
	stepName    Model
	stepRepeats Model

	addStep Model
)

func (m *Model) Arrangement() *ArrangementModel { return (*ArrangementModel)(m) }

func (v *ArrangementModel) List() List      { return MakeList((*stepList)(v)) }
func (v *ArrangementModel) Name() String    { return MakeString((*stepName)(v)) }
func (v *ArrangementModel) Repeats() Int    { return MakeInt((*stepRepeats)(v)) }
func (v *ArrangementModel) AddStep() Action { return MakeAction((*addStep)(v)) }

// Active reports whether the pattern plays in the selected step.
func (v *ArrangementModel) Active(patternID int) bool {
	if step := (*Model)(v).currentStep(); step != nil {
		return step.HasPattern(patternID)
	}
	return false
}

// Armed reports whether the pattern is the recording target of the selected
// step.
func (v *ArrangementModel) Armed(patternID int) bool {
	if step := (*Model)(v).currentStep(); step != nil {
		return step.ArmedPatternID == patternID
	}
	return false
}

// ToggleActive adds the pattern to the selected step, or removes it if it is
// already active. The first pattern added to a step becomes armed.
func (v *ArrangementModel) ToggleActive(patternID int) {
	m := (*Model)(v)
	step := m.currentStep()
	if step == nil {
		return
	}
	if _, ok := m.d.Project.Pattern(patternID); !ok {
		return
	}
	defer m.change("ToggleActive", ArrangementChange, MajorChange)()
	if step.HasPattern(patternID) {
		step.RemovePattern(patternID)
		return
	}
	step.ActivePatternIDs = append(step.ActivePatternIDs, patternID)
	if step.ArmedPatternID == 0 {
		step.ArmedPatternID = patternID
	}
}

// Arm makes the pattern the recording target of the selected step,
// activating it first if needed.
func (v *ArrangementModel) Arm(patternID int) {
	m := (*Model)(v)
	step := m.currentStep()
	if step == nil {
		return
	}
	if _, ok := m.d.Project.Pattern(patternID); !ok {
		return
	}
	defer m.change("ArmPattern", ArrangementChange, MajorChange)()
	if !step.HasPattern(patternID) {
		step.ActivePatternIDs = append(step.ActivePatternIDs, patternID)
	}
	step.ArmedPatternID = patternID
}

func (v *stepList) Selected() int { return v.d.StepIndex }
func (v *stepList) SetSelected(value int) {
	v.d.StepIndex = value
	v.d.ChangedSinceRecovery = true
}
func (v *stepList) Count() int { return len((*Model)(v).currentBank().Arrangement) }

func (v *stepList) Change(kind string, severity ChangeSeverity) func() {
	return (*Model)(v).change(kind, ArrangementChange, severity)
}

func (v *stepList) Cancel() { v.changeCancel = true }

func (v *stepList) Move(r Range, delta int) bool {
	arr := (*Model)(v).currentBank().Arrangement
	for i, j := range r.Swaps(delta) {
		if i < 0 || j < 0 || i >= len(arr) || j >= len(arr) {
			return false
		}
		arr[i], arr[j] = arr[j], arr[i]
	}
	return true
}

func (v *stepList) Delete(r Range) bool {
	bank := (*Model)(v).currentBank()
	if r.Start < 0 || r.End > len(bank.Arrangement) {
		return false
	}
	bank.Arrangement = append(bank.Arrangement[:r.Start], bank.Arrangement[r.End:]...)
	return true
}

func (v *stepName) Value() string {
	if step := (*Model)(v).currentStep(); step != nil {
		return step.Name
	}
	return ""
}

func (v *stepName) SetValue(value string) bool {
	m := (*Model)(v)
	step := m.currentStep()
	if step == nil {
		return false
	}
	defer m.change("StepNameString", ArrangementChange, MinorChange)()
	step.Name = value
	return true
}

func (v *stepRepeats) Value() int {
	if step := (*Model)(v).currentStep(); step != nil {
		return max(step.Repeats, 1)
	}
	return 1
}

func (v *stepRepeats) SetValue(value int) bool {
	m := (*Model)(v)
	step := m.currentStep()
	if step == nil {
		return false
	}
	defer m.change("RepeatsInt", ArrangementChange, MinorChange)()
	step.Repeats = value
	return true
}

func (v *stepRepeats) Range() RangeInclusive { return RangeInclusive{1, 64} }

// Do appends a step after the selected one. The new step starts with the
// currently selected pattern active and armed, so recording can begin right
// away.
func (v *addStep) Do() {
	m := (*Model)(v)
	defer m.change("AddStep", ArrangementChange, MajorChange)()
	step := padloop.SongStep{
		ID:      m.nextID(),
		Repeats: 1,
	}
	step.Name = fmt.Sprintf("Step %d", step.ID)
	if pat := m.currentPattern(); pat != nil {
		step.ActivePatternIDs = []int{pat.ID}
		step.ArmedPatternID = pat.ID
	}
	bank := m.currentBank()
	index := min(m.d.StepIndex+1, len(bank.Arrangement))
	arr, ok := Insert(bank.Arrangement, index, step)
	if !ok {
		m.changeCancel = true
		return
	}
	bank.Arrangement = arr
	m.d.StepIndex = index
}
