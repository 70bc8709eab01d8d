package engine

import (
	"math"

	"github.com/padloop/padloop"
)

// RecordedHitMsg tells the model a hit was captured live, so the store stays
// in sync with the copy the player plays from. The hit carries the id the
// player assigned to it.
type RecordedHitMsg struct {
	PatternID int
	Hit       padloop.LoopHit
}

// recordHit quantizes a pad trigger and appends it to the recording target:
// the armed pattern of the current step in song mode, the current pattern in
// pattern mode. The hit goes into the player's own copy right away and
// travels to the model as a RecordedHitMsg, so both sides end up with the
// same hit under the same id.
func (p *Player) recordHit(pad int, now float64) {
	target := p.recordTarget()
	if target == nil {
		return
	}
	beatDur := padloop.BeatDuration(p.project.BPM)
	patDur := target.Duration(p.project.BPM)
	if beatDur <= 0 || patDur <= 0 {
		return
	}
	raw := wrapMod(now-p.s.sectionStart, patDur) / beatDur
	hit := padloop.LoopHit{
		ID:                 p.nextRecordedHitID(),
		PadID:              pad,
		BeatOffset:         padloop.QuantizeBeatOffset(raw, p.project.Quantize, target.Bars),
		OriginalBeatOffset: raw,
		Pass:               p.s.pass,
	}
	target.AppendHit(hit)

	// The tap itself already sounded as a foreground voice. Marking its key
	// for the ongoing iteration keeps the scheduler from sounding it a
	// second time; playback of the hit starts on the next pass.
	iter := int(math.Floor((now - p.s.sectionStart) / patDur))
	if iter < 0 {
		iter = 0
	}
	p.markScheduled(target.ID, hitKey{id: hit.ID, iteration: iter})

	TrySend(p.broker.ToModel, MsgToModel{Data: RecordedHitMsg{PatternID: target.ID, Hit: hit}})
}

func (p *Player) recordTarget() *padloop.Pattern {
	if p.mode == ModePattern {
		return p.playingPattern()
	}
	step, ok := p.currentArrangement().Step(p.s.stepIndex)
	if !ok || step.ArmedPatternID == 0 {
		return nil
	}
	if pat, ok := p.project.Pattern(step.ArmedPatternID); ok {
		return pat
	}
	return nil
}

func (p *Player) nextRecordedHitID() int {
	id := p.recHitID
	p.recHitID--
	return id
}
