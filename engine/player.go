package engine

import (
	"math"
	"time"

	"github.com/padloop/padloop"
)

type (
	// Player is the playback engine. It runs on its own goroutine (Run),
	// receives the project and commands through the broker, and schedules
	// pad voices, metronome clicks and pad flashes ahead of the audio
	// clock. The audio clock is the only timing authority; the tick that
	// drives the player is just an opportunity to look ahead and is allowed
	// to be late or uneven.
	Player struct {
		backend padloop.AudioBackend
		broker  *Broker
		wake    padloop.WakeLock

		project   padloop.Project
		mode      PlayMode
		bank      int
		pattern   int // current pattern id, the one playing in pattern mode
		loopPin   bool
		metronome bool

		transport TransportState
		s         schedulerState

		foreground []padloop.VoiceHandle

		recHitID int // ids for live-captured hits, always negative

		active []*padloop.Pattern // scratch for resolveSection
	}

	// schedulerState is all the mutable timing state of one playback run.
	// It is owned by the player and replaced wholesale on start, so nothing
	// leaks from one run, or one Player instance, into another.
	schedulerState struct {
		songStart    float64
		sectionStart float64
		stepIndex    int
		pass         int

		// lastScheduled is the inclusive lower bound of the scheduling
		// window; hits are eligible in [lastScheduled, now+lookahead).
		lastScheduled float64

		// scheduled remembers, per pattern id, which (hit, iteration) pairs
		// have already been sent to the backend this section. order keeps
		// insertion order so the oldest keys can be evicted first.
		scheduled map[int]map[hitKey]struct{}
		order     []patternHitKey

		nextMetronome float64
		metroBeat     int
	}

	hitKey struct {
		id        int
		iteration int
	}

	patternHitKey struct {
		pattern int
		key     hitKey
	}
)

const (
	// tickInterval is the cadence of the scheduling tick, roughly one
	// display refresh.
	tickInterval = 16 * time.Millisecond

	// playHeadStart is added to the audio clock on start so the first
	// events are still in the future when the first tick runs.
	playHeadStart = 0.03

	// anchorEpsilon backs the scheduling window up just before a section
	// boundary so a hit at beat offset 0 is never lost to the half-open
	// interval test.
	anchorEpsilon = 1e-9

	minLookahead = 0.1
	maxLookahead = 0.5

	// maxScheduledKeys caps the dedup bookkeeping during very long
	// sections; the oldest keys are dropped first.
	maxScheduledKeys = 1000
)

func NewPlayer(broker *Broker, backend padloop.AudioBackend, wake padloop.WakeLock) *Player {
	if wake == nil {
		wake = padloop.NopWakeLock()
	}
	p := &Player{
		backend:  backend,
		broker:   broker,
		wake:     wake,
		recHitID: -1,
	}
	p.s.scheduled = make(map[int]map[hitKey]struct{})
	return p
}

// Run is the engine goroutine. It processes messages from the model and,
// while the transport runs, wakes up on a timer to schedule ahead. The timer
// is re-armed only while playing, so a stopped player sleeps until the next
// message.
func (p *Player) Run() {
	defer close(p.broker.FinishedPlayer)
	timer := time.NewTimer(tickInterval)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false
	for {
		select {
		case msg := <-p.broker.ToPlayer:
			p.processMsg(msg)
		case <-p.broker.ClosePlayer:
			p.stopPlayback()
			return
		case <-timer.C:
			armed = false
			if p.transport == TransportStopped {
				continue
			}
			p.tick(p.backend.Now())
		}
		if p.transport != TransportStopped {
			if !armed {
				timer.Reset(tickInterval)
				armed = true
			}
		} else if armed {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			armed = false
		}
	}
}

func (p *Player) processMsg(msg any) {
	switch m := msg.(type) {
	case padloop.Project:
		p.project = m
		if id := p.project.MinHitID() - 1; id < p.recHitID {
			p.recHitID = id
		}
	case StartPlayMsg:
		p.startPlayback(m.Recording)
	case StopPlayMsg:
		p.stopPlayback()
	case RecordingMsg:
		p.setRecording(m.On)
	case ToggleTransportMsg:
		if p.transport == TransportStopped {
			p.startPlayback(false)
		} else {
			p.stopPlayback()
		}
	case PrimaryControlMsg:
		if !p.stopForeground() {
			if p.transport == TransportStopped {
				p.startPlayback(false)
			} else {
				p.stopPlayback()
			}
		}
	case StopForegroundMsg:
		p.stopForeground()
	case PanicMsg:
		p.backend.StopAll()
		p.foreground = p.foreground[:0]
	case ModeMsg:
		p.mode = m.Mode
	case BankMsg:
		if m.Index >= 0 && m.Index < padloop.NumBanks {
			p.bank = m.Index
			p.s.stepIndex = 0
		}
	case LoopPinMsg:
		p.loopPin = m.Pin
	case MetronomeMsg:
		p.setMetronome(m.On)
	case CurrentPatternMsg:
		p.pattern = m.ID
	case PadTriggerMsg:
		p.triggerPad(m.Pad, m.Velocity)
	case MIDINoteMsg:
		if m.On && m.Velocity > 0 {
			if pad := p.padForNote(m.Note); pad >= 0 {
				p.triggerPad(pad, float32(m.Velocity)/127)
			}
		}
	}
}

// tick runs one pass of the scheduling loop against the given audio clock
// reading. It is a plain function of the player state so tests can drive it
// with hand-picked times instead of a real timer.
func (p *Player) tick(now float64) {
	beatDur := padloop.BeatDuration(p.project.BPM)
	active, stepTotal, ok := p.resolveSection()
	if !ok {
		return
	}
	if stepTotal <= 0 || beatDur <= 0 {
		p.haltPlayback("Cannot play: section has no duration")
		return
	}
	elapsed := now - p.s.sectionStart

	beat := int(math.Floor(elapsed / beatDur))

	// Section rollover. A stalled tick can overshoot more than one section,
	// so keep advancing; the start always moves by whole step durations,
	// never snaps to now, which is what keeps the phase drift-free.
	for elapsed >= stepTotal {
		if p.mode == ModeSong && !p.loopPin {
			if n := len(p.currentArrangement()); n > 0 {
				p.s.stepIndex = (p.s.stepIndex + 1) % n
			}
		}
		p.s.sectionStart += stepTotal
		p.s.lastScheduled = p.s.sectionStart - anchorEpsilon
		p.clearScheduled()
		p.s.pass++
		if active, stepTotal, ok = p.resolveSection(); !ok {
			return
		}
		if stepTotal <= 0 {
			p.haltPlayback("Cannot play: section has no duration")
			return
		}
		elapsed = now - p.s.sectionStart
	}

	// The lookahead adapts to tempo so that even at very fast tempos at
	// least one full beat is buffered ahead.
	lookahead := min(max(2*beatDur, minLookahead), maxLookahead)
	horizon := now + lookahead
	maxTime := p.s.lastScheduled
	scheduledAny := false
	for _, pat := range active {
		patDur := pat.Duration(p.project.BPM)
		if patDur <= 0 {
			continue
		}
		iter := int(math.Floor(elapsed / patDur))
		if iter < 0 {
			iter = 0 // still in the head start, first iteration
		}
		for _, hit := range pat.Hits {
			t := p.s.sectionStart + float64(iter)*patDur + hit.BeatOffset*beatDur
			if t < p.s.lastScheduled || t >= horizon {
				continue
			}
			key := hitKey{id: hit.ID, iteration: iter}
			if p.isScheduled(pat.ID, key) {
				continue
			}
			p.markScheduled(pat.ID, key)
			p.triggerHit(hit, t, now)
			scheduledAny = true
			if t > maxTime {
				maxTime = t
			}
		}
	}
	if scheduledAny {
		p.s.lastScheduled = maxTime
	} else {
		// Without this floor rule, hits already inside the window but not
		// yet due would fall behind the window on the next tick and never
		// sound.
		p.s.lastScheduled = max(p.s.lastScheduled, now-lookahead)
	}
	p.evictScheduled()

	if p.metronome {
		for p.s.nextMetronome < horizon {
			accented := p.s.metroBeat%padloop.BeatsPerBar == 0
			if err := p.backend.PlayClick(p.s.nextMetronome, accented); err != nil {
				p.sendAlert("MetronomeClick", "Metronome click failed: "+err.Error(), Warning)
			}
			p.s.nextMetronome += beatDur
			p.s.metroBeat++
		}
	}

	p.sendPlayState(now, elapsed, stepTotal, beat)
}

// resolveSection returns the patterns playing right now and the total
// duration of the current section. In song mode that is the current step of
// the current bank; in pattern mode the current pattern, falling back to the
// first one. A missing step halts the transport; patterns missing from a
// step's active set are skipped.
func (p *Player) resolveSection() ([]*padloop.Pattern, float64, bool) {
	if p.mode == ModePattern {
		pat := p.playingPattern()
		if pat == nil {
			p.haltPlayback("Cannot play: no patterns")
			return nil, 0, false
		}
		p.active = append(p.active[:0], pat)
		return p.active, pat.Duration(p.project.BPM), true
	}
	step, ok := p.currentArrangement().Step(p.s.stepIndex)
	if !ok {
		p.haltPlayback("Cannot play: current step no longer exists")
		return nil, 0, false
	}
	p.active = p.active[:0]
	for _, id := range step.ActivePatternIDs {
		if pat, ok := p.project.Pattern(id); ok {
			p.active = append(p.active, pat)
		}
	}
	return p.active, p.project.StepDuration(step), true
}

func (p *Player) triggerHit(hit padloop.LoopHit, at, now float64) {
	pad, ok := p.currentBank().Pad(hit.PadID)
	if !ok {
		return // pad gone from the kit, skip the hit
	}
	if _, err := p.backend.PlayTone(pad.Tone, 1, at); err != nil {
		p.sendAlert("AudioTrigger", "Pad trigger failed: "+err.Error(), Warning)
		return
	}
	delay := max(at-now, 0)
	TrySend(p.broker.ToModel, MsgToModel{Data: PadFlashMsg{
		Pad:   hit.PadID,
		Delay: time.Duration(delay * float64(time.Second)),
	}})
}

func (p *Player) isScheduled(pattern int, key hitKey) bool {
	keys, ok := p.s.scheduled[pattern]
	if !ok {
		return false
	}
	_, ok = keys[key]
	return ok
}

func (p *Player) markScheduled(pattern int, key hitKey) {
	keys, ok := p.s.scheduled[pattern]
	if !ok {
		keys = make(map[hitKey]struct{})
		p.s.scheduled[pattern] = keys
	}
	keys[key] = struct{}{}
	p.s.order = append(p.s.order, patternHitKey{pattern: pattern, key: key})
}

func (p *Player) evictScheduled() {
	for len(p.s.order) > maxScheduledKeys {
		oldest := p.s.order[0]
		p.s.order = p.s.order[1:]
		if keys, ok := p.s.scheduled[oldest.pattern]; ok {
			delete(keys, oldest.key)
		}
	}
}

func (p *Player) clearScheduled() {
	clear(p.s.scheduled)
	p.s.order = p.s.order[:0]
}

// startPlayback begins a fresh run from the top of the song. The start point
// is a short head start past the current audio clock so the first hits are
// scheduled before they are due.
func (p *Player) startPlayback(recording bool) {
	start := p.backend.Now() + playHeadStart
	p.s = schedulerState{
		songStart:     start,
		sectionStart:  start,
		lastScheduled: start - anchorEpsilon,
		scheduled:     make(map[int]map[hitKey]struct{}),
		nextMetronome: start,
	}
	if recording {
		p.transport = TransportRecording
	} else {
		p.transport = TransportPlaying
	}
	p.wake.Acquire()
	p.sendPlayState(start, 0, 1, -1)
}

func (p *Player) stopPlayback() {
	if p.transport == TransportStopped {
		return
	}
	p.transport = TransportStopped
	p.backend.StopAll()
	p.foreground = p.foreground[:0]
	p.s.stepIndex = 0
	p.wake.Release()
	TrySend(p.broker.ToModel, MsgToModel{HasPlayState: true, PlayState: PlayState{
		Transport: TransportStopped,
		Mode:      p.mode,
		Beat:      -1,
	}})
}

func (p *Player) haltPlayback(message string) {
	p.sendAlert("PlaybackInvalid", message, Warning)
	p.stopPlayback()
}

func (p *Player) setRecording(on bool) {
	switch {
	case on && p.transport == TransportStopped:
		p.startPlayback(true)
	case on && p.transport == TransportPlaying:
		p.transport = TransportRecording
	case !on && p.transport == TransportRecording:
		p.transport = TransportPlaying
	}
}

// setMetronome snaps the click onto the next beat boundary when switched on
// mid-flight, so it does not burst to catch up from the song start.
func (p *Player) setMetronome(on bool) {
	if on && !p.metronome && p.transport != TransportStopped {
		now := p.backend.Now()
		beatDur := padloop.BeatDuration(p.project.BPM)
		if beatDur > 0 {
			beats := math.Ceil((now - p.s.songStart) / beatDur)
			if beats < 0 {
				beats = 0
			}
			p.s.metroBeat = int(beats)
			p.s.nextMetronome = p.s.songStart + beats*beatDur
		}
	}
	p.metronome = on
}

// triggerPad plays a pad immediately as a foreground voice and, while
// recording, captures it into the armed pattern.
func (p *Player) triggerPad(pad int, velocity float32) {
	padDef, ok := p.currentBank().Pad(pad)
	if !ok {
		return
	}
	velocity = min(max(velocity, 0), 1)
	now := p.backend.Now()
	handle, err := p.backend.PlayTone(padDef.Tone, velocity, now)
	if err != nil {
		p.sendAlert("AudioTrigger", "Pad trigger failed: "+err.Error(), Warning)
		return
	}
	p.pruneForeground()
	p.foreground = append(p.foreground, handle)
	TrySend(p.broker.ToModel, MsgToModel{Data: PadFlashMsg{Pad: pad}})
	if p.transport == TransportRecording {
		p.recordHit(pad, now)
	}
}

// stopForeground silences the user's own pad voices, leaving sequenced
// playback alone. Reports whether anything was actually sounding.
func (p *Player) stopForeground() bool {
	p.pruneForeground()
	if len(p.foreground) == 0 {
		return false
	}
	for _, h := range p.foreground {
		p.backend.Stop(h)
	}
	p.foreground = p.foreground[:0]
	return true
}

func (p *Player) pruneForeground() {
	keep := p.foreground[:0]
	for _, h := range p.foreground {
		if p.backend.Active(h) {
			keep = append(keep, h)
		}
	}
	p.foreground = keep
}

func (p *Player) sendPlayState(now, elapsed, stepTotal float64, beat int) {
	ps := PlayState{
		Transport: p.transport,
		Mode:      p.mode,
		StepIndex: p.s.stepIndex,
		Pass:      p.s.pass,
		Beat:      beat,
		Downbeat:  beat >= 0 && beat%padloop.BeatsPerBar == 0,
	}
	if stepTotal > 0 {
		ps.Progress = min(max(elapsed/stepTotal, 0), 1)
	}
	if total := p.totalDuration(); total > 0 {
		ps.TotalDur = total
		ps.SongPos = wrapMod(now-p.s.songStart, total)
	}
	TrySend(p.broker.ToModel, MsgToModel{HasPlayState: true, PlayState: ps})
}

func (p *Player) totalDuration() float64 {
	if p.mode == ModePattern {
		if pat := p.playingPattern(); pat != nil {
			return pat.Duration(p.project.BPM)
		}
		return 0
	}
	return p.project.TotalDuration(p.bank)
}

func (p *Player) sendAlert(name, message string, priority AlertPriority) {
	TrySend(p.broker.ToModel, MsgToModel{Data: Alert{
		Name:     name,
		Priority: priority,
		Message:  message,
		Duration: defaultAlertDuration,
	}})
}

func (p *Player) currentBank() *padloop.Bank {
	if p.bank < 0 || p.bank >= len(p.project.Banks) {
		return &padloop.Bank{}
	}
	return &p.project.Banks[p.bank]
}

func (p *Player) currentArrangement() padloop.Arrangement {
	return p.currentBank().Arrangement
}

func (p *Player) playingPattern() *padloop.Pattern {
	if pat, ok := p.project.Pattern(p.pattern); ok {
		return pat
	}
	if len(p.project.Patterns) > 0 {
		return &p.project.Patterns[0]
	}
	return nil
}

func (p *Player) padForNote(note byte) int {
	bank := p.currentBank()
	for i := range bank.Pads {
		if bank.Pads[i].Note == note {
			return i
		}
	}
	return -1
}

// wrapMod is a modulo that wraps negative values into [0, m), so a readout
// just before the song start still lands inside the song.
func wrapMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}
