package engine

import (
	"math"

	"github.com/padloop/padloop"
)

type (
	// SongModel provides the bindings for the song-level settings: tempo,
	// quantize grid, play mode, bank selection, loop pinning and the
	// metronome. Tempo and quantize live in the project and are undoable;
	// the rest are session state and only persist through recovery.
	SongModel Model

	bpmInt        Model
	quantizeInt   Model
	modeInt       Model
	bankInt       Model
	metronomeBool Model
	loopPinBool   Model
)

func (m *Model) Song() *SongModel { return (*SongModel)(m) }

func (v *SongModel) BPM() Int        { return MakeInt((*bpmInt)(v)) }
func (v *SongModel) Quantize() Int   { return MakeInt((*quantizeInt)(v)) }
func (v *SongModel) Mode() Int       { return MakeInt((*modeInt)(v)) }
func (v *SongModel) Bank() Int       { return MakeInt((*bankInt)(v)) }
func (v *SongModel) Metronome() Bool { return MakeBool((*metronomeBool)(v)) }
func (v *SongModel) LoopPin() Bool   { return MakeBool((*loopPinBool)(v)) }

func (v *bpmInt) Value() int { return int(math.Round(v.d.Project.BPM)) }
func (v *bpmInt) SetValue(value int) bool {
	defer (*Model)(v).change("BPMInt", ParamsChange, MinorChange)()
	v.d.Project.BPM = float64(value)
	return true
}
func (v *bpmInt) Range() RangeInclusive { return RangeInclusive{20, 300} }

var (
	quantizeGrids = []float64{padloop.GridOff, padloop.GridEighth, padloop.GridSixteenth}
	quantizeNames = []string{"Off", "1/8", "1/16"}
)

func (v *quantizeInt) Value() int {
	for i, g := range quantizeGrids {
		if v.d.Project.Quantize == g {
			return i
		}
	}
	return 0
}
func (v *quantizeInt) SetValue(value int) bool {
	defer (*Model)(v).change("QuantizeInt", ParamsChange, MinorChange)()
	v.d.Project.Quantize = quantizeGrids[value]
	return true
}
func (v *quantizeInt) Range() RangeInclusive { return RangeInclusive{0, len(quantizeGrids) - 1} }
func (v *quantizeInt) StringOf(value int) string {
	if value < 0 || value >= len(quantizeNames) {
		return ""
	}
	return quantizeNames[value]
}

func (v *modeInt) Value() int { return int(v.d.Mode) }
func (v *modeInt) SetValue(value int) bool {
	v.d.Mode = PlayMode(value)
	v.d.ChangedSinceRecovery = true
	TrySend(v.broker.ToPlayer, any(ModeMsg{v.d.Mode}))
	return true
}
func (v *modeInt) Range() RangeInclusive     { return RangeInclusive{0, 1} }
func (v *modeInt) StringOf(value int) string { return PlayMode(value).String() }

func (v *bankInt) Value() int { return v.d.BankIndex }
func (v *bankInt) SetValue(value int) bool {
	v.d.BankIndex = value
	v.d.StepIndex = 0
	v.d.ChangedSinceRecovery = true
	(*Model)(v).updateDerived(ArrangementChange)
	TrySend(v.broker.ToPlayer, any(BankMsg{value}))
	return true
}
func (v *bankInt) Range() RangeInclusive     { return RangeInclusive{0, padloop.NumBanks - 1} }
func (v *bankInt) StringOf(value int) string { return string(rune('A' + value)) }

func (v *metronomeBool) Value() bool { return v.d.Metronome }
func (v *metronomeBool) SetValue(value bool) {
	v.d.Metronome = value
	v.d.ChangedSinceRecovery = true
	TrySend(v.broker.ToPlayer, any(MetronomeMsg{value}))
}

func (v *loopPinBool) Value() bool { return v.d.LoopPin }
func (v *loopPinBool) SetValue(value bool) {
	v.d.LoopPin = value
	v.d.ChangedSinceRecovery = true
	TrySend(v.broker.ToPlayer, any(LoopPinMsg{value}))
}
