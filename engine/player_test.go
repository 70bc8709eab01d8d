package engine

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/padloop/padloop"
)

type (
	playedTone struct {
		tone     padloop.Tone
		velocity float32
		at       float64
		handle   padloop.VoiceHandle
	}

	playedClick struct {
		at       float64
		accented bool
	}

	// fakeBackend records what the player schedules. The clock is set by
	// hand, so tests drive tick() with exactly the times they want.
	fakeBackend struct {
		now      float64
		next     padloop.VoiceHandle
		tones    []playedTone
		clicks   []playedClick
		active   map[padloop.VoiceHandle]bool
		stopAlls int
		toneErr  error
	}

	countingWakeLock struct{ acquired, released int }
)

var _ padloop.AudioBackend = (*fakeBackend)(nil)

func (b *fakeBackend) Now() float64 { return b.now }

func (b *fakeBackend) PlayTone(tone padloop.Tone, velocity float32, at float64) (padloop.VoiceHandle, error) {
	if b.toneErr != nil {
		return 0, b.toneErr
	}
	b.next++
	b.tones = append(b.tones, playedTone{tone: tone, velocity: velocity, at: at, handle: b.next})
	b.active[b.next] = true
	return b.next, nil
}

func (b *fakeBackend) PlayClick(at float64, accented bool) error {
	b.clicks = append(b.clicks, playedClick{at: at, accented: accented})
	return nil
}

func (b *fakeBackend) Stop(handle padloop.VoiceHandle)        { delete(b.active, handle) }
func (b *fakeBackend) Active(handle padloop.VoiceHandle) bool { return b.active[handle] }

func (b *fakeBackend) StopAll() {
	b.stopAlls++
	clear(b.active)
}

func (b *fakeBackend) toneTimes() []float64 {
	ret := make([]float64, len(b.tones))
	for i, tone := range b.tones {
		ret[i] = tone.at
	}
	return ret
}

func (w *countingWakeLock) Acquire() { w.acquired++ }
func (w *countingWakeLock) Release() { w.released++ }

// playerProject builds a project with the given pattern pool, the steps as
// bank A's arrangement, and four pads per bank whose pitches 100, 200, 300,
// 400 identify which pad a recorded tone came from.
func playerProject(patterns []padloop.Pattern, steps ...padloop.SongStep) padloop.Project {
	banks := make([]padloop.Bank, padloop.NumBanks)
	for i := range banks {
		for pad := 0; pad < 4; pad++ {
			banks[i].Pads = append(banks[i].Pads, padloop.Pad{
				Note: byte(36 + pad),
				Tone: padloop.Tone{Pitch: float64(100 * (pad + 1)), Decay: 0.1, Level: 1},
			})
		}
	}
	banks[0].Arrangement = padloop.Arrangement(steps)
	return padloop.Project{BPM: 120, Patterns: patterns, Banks: banks}
}

func newTestPlayer(project padloop.Project) (*Player, *fakeBackend, *Broker) {
	broker := NewBroker()
	backend := &fakeBackend{active: make(map[padloop.VoiceHandle]bool)}
	p := NewPlayer(broker, backend, nil)
	p.processMsg(project)
	return p, backend, broker
}

func drainToModel(broker *Broker) []MsgToModel {
	var ret []MsgToModel
	for {
		select {
		case msg := <-broker.ToModel:
			ret = append(ret, msg)
		default:
			return ret
		}
	}
}

func lastPlayState(msgs []MsgToModel) (PlayState, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].HasPlayState {
			return msgs[i].PlayState, true
		}
	}
	return PlayState{}, false
}

func findAlert(msgs []MsgToModel, name string) (Alert, bool) {
	for _, msg := range msgs {
		if a, ok := msg.Data.(Alert); ok && a.Name == name {
			return a, true
		}
	}
	return Alert{}, false
}

func expectTimes(t *testing.T, got, want []float64) {
	if len(got) != len(want) {
		t.Fatalf("got %d scheduled times %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("scheduled time %d got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScheduleTimes(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1, Hits: []padloop.LoopHit{
			{ID: 10, PadID: 0, BeatOffset: 0},
			{ID: 11, PadID: 1, BeatOffset: 2},
			{ID: 12, PadID: 2, BeatOffset: 3.5},
		}}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 2},
	)
	p, backend, broker := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	start := playHeadStart
	for _, now := range []float64{0, 0.6, 1.4, 2.1, 2.8, 3.5} {
		backend.now = now
		p.tick(now)
	}
	// the pattern cycles twice inside the step, so every hit sounds at both
	// cycle offsets
	expectTimes(t, backend.toneTimes(), []float64{
		start,
		start + 1,
		start + 1.75,
		start + 2,
		start + 3,
		start + 3.75,
	})
	for i, pitch := range []float64{100, 200, 300} {
		if backend.tones[i].tone.Pitch != pitch {
			t.Errorf("tone %d has pitch %v, want %v", i, backend.tones[i].tone.Pitch, pitch)
		}
		if backend.tones[i].velocity != 1 {
			t.Errorf("sequenced tone %d has velocity %v, want 1", i, backend.tones[i].velocity)
		}
	}
	msgs := drainToModel(broker)
	flashes := 0
	for _, msg := range msgs {
		if f, ok := msg.Data.(PadFlashMsg); ok {
			flashes++
			if f.Delay < 0 || f.Delay > 500*time.Millisecond {
				t.Errorf("pad flash delay %v outside the lookahead window", f.Delay)
			}
		}
	}
	if flashes != len(backend.tones) {
		t.Errorf("got %d pad flashes, want one per scheduled tone (%d)", flashes, len(backend.tones))
	}
	// step boundary: the start moves by the exact step duration, a stalled
	// clock never re-anchors it to now
	backend.now = 4.1
	p.tick(4.1)
	if p.s.pass != 1 {
		t.Fatalf("pass got %d, want 1 after the step boundary", p.s.pass)
	}
	if math.Abs(p.s.sectionStart-(start+4)) > 1e-9 {
		t.Fatalf("section start got %v, want %v", p.s.sectionStart, start+4)
	}
	if len(backend.tones) != 7 || math.Abs(backend.tones[6].at-(start+4)) > 1e-9 {
		t.Fatalf("expected the first hit of the next pass at %v, tones: %v", start+4, backend.toneTimes())
	}
}

func TestRepeatedTicksScheduleOnce(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1, Hits: []padloop.LoopHit{
			{ID: 10, PadID: 0, BeatOffset: 0},
			{ID: 11, PadID: 1, BeatOffset: 2},
		}}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, _ := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	backend.now = 0.6
	p.tick(0.6)
	if len(backend.tones) != 2 {
		t.Fatalf("got %d tones, want 2", len(backend.tones))
	}
	p.tick(0.6)
	p.tick(0.61)
	if len(backend.tones) != 2 {
		t.Fatalf("repeated ticks rescheduled hits: got %d tones, want 2", len(backend.tones))
	}
}

func TestHitFiresOncePerPass(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 4, Hits: []padloop.LoopHit{
			{ID: 10, PadID: 0, BeatOffset: 2},
		}}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, _ := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	for now := 0.0; now < 17.0; now += 0.4 {
		backend.now = now
		p.tick(now)
	}
	// a four bar pattern at 120 BPM lasts 8s, so the beat 2 hit sounds one
	// second into every pass
	start := playHeadStart
	expectTimes(t, backend.toneTimes(), []float64{start + 1, start + 9, start + 17})
	if p.s.pass != 2 {
		t.Fatalf("pass got %d, want 2", p.s.pass)
	}
}

func TestUnevenTicksPlayEverythingOnce(t *testing.T) {
	pattern := padloop.Pattern{ID: 1, Bars: 1}
	for i := 0; i < 8; i++ {
		pattern.Hits = append(pattern.Hits, padloop.LoopHit{ID: 10 + i, PadID: 0, BeatOffset: float64(i) * 0.5})
	}
	project := playerProject(
		[]padloop.Pattern{pattern},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, broker := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	jitter := []float64{0.016, 0.031, 0.005, 0.047, 0.012, 0.09, 0.016, 0.002}
	now := 0.0
	for i := 0; now < 7.2; i++ {
		backend.now = now
		p.tick(now)
		now += jitter[i%len(jitter)]
		drainToModel(broker)
	}
	var got []float64
	for _, at := range backend.toneTimes() {
		if at < 6 {
			got = append(got, at)
		}
	}
	slices.Sort(got)
	var want []float64
	for pass := 0; pass < 3; pass++ {
		for i := 0; i < 8; i++ {
			want = append(want, playHeadStart+2*float64(pass)+0.25*float64(i))
		}
	}
	expectTimes(t, got, want)
	if p.s.pass != 3 {
		t.Errorf("pass got %d, want 3", p.s.pass)
	}
}

func TestSongModeAdvancesSteps(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{
			{ID: 1, Bars: 1, Hits: []padloop.LoopHit{{ID: 10, PadID: 0}}},
			{ID: 2, Bars: 2, Hits: []padloop.LoopHit{{ID: 20, PadID: 1}}},
		},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
		padloop.SongStep{ID: 101, ActivePatternIDs: []int{2}, Repeats: 1},
	)
	p, backend, broker := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	for _, now := range []float64{0, 1, 2.1, 3, 4, 5, 6.1, 6.2} {
		backend.now = now
		p.tick(now)
	}
	expectTimes(t, backend.toneTimes(), []float64{
		playHeadStart,     // step 1, pattern 1
		playHeadStart + 2, // step 2, pattern 2
		playHeadStart + 6, // wrapped back to step 1
	})
	for i, pitch := range []float64{100, 200, 100} {
		if backend.tones[i].tone.Pitch != pitch {
			t.Errorf("tone %d has pitch %v, want %v", i, backend.tones[i].tone.Pitch, pitch)
		}
	}
	if p.s.stepIndex != 0 || p.s.pass != 2 {
		t.Errorf("got step %d pass %d, want step 0 pass 2", p.s.stepIndex, p.s.pass)
	}
	seen := map[int]bool{}
	for _, msg := range drainToModel(broker) {
		if msg.HasPlayState {
			seen[msg.PlayState.StepIndex] = true
		}
	}
	if !seen[0] || !seen[1] {
		t.Errorf("play state reported steps %v, want both 0 and 1", seen)
	}
}

func TestLoopPinHoldsStep(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{
			{ID: 1, Bars: 1, Hits: []padloop.LoopHit{{ID: 10, PadID: 0}}},
			{ID: 2, Bars: 2, Hits: []padloop.LoopHit{{ID: 20, PadID: 1}}},
		},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
		padloop.SongStep{ID: 101, ActivePatternIDs: []int{2}, Repeats: 1},
	)
	p, backend, _ := newTestPlayer(project)
	p.processMsg(LoopPinMsg{Pin: true})
	p.processMsg(StartPlayMsg{})
	for _, now := range []float64{0, 1, 2.1, 3, 4, 5, 6.1, 6.2} {
		backend.now = now
		p.tick(now)
	}
	expectTimes(t, backend.toneTimes(), []float64{
		playHeadStart,
		playHeadStart + 2,
		playHeadStart + 4,
		playHeadStart + 6,
	})
	for i := range backend.tones {
		if backend.tones[i].tone.Pitch != 100 {
			t.Fatalf("tone %d has pitch %v, want the pinned step's pattern only", i, backend.tones[i].tone.Pitch)
		}
	}
	if p.s.stepIndex != 0 {
		t.Errorf("pinned step index got %d, want 0", p.s.stepIndex)
	}
}

func TestPatternModeLoopsSelectedPattern(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{
			{ID: 1, Bars: 1, Hits: []padloop.LoopHit{{ID: 10, PadID: 0}}},
			{ID: 2, Bars: 2, Hits: []padloop.LoopHit{{ID: 20, PadID: 1}}},
		},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, _ := newTestPlayer(project)
	p.processMsg(ModeMsg{Mode: ModePattern})
	p.processMsg(CurrentPatternMsg{ID: 2})
	p.processMsg(StartPlayMsg{})
	for _, now := range []float64{0, 2, 4.1, 6} {
		backend.now = now
		p.tick(now)
	}
	expectTimes(t, backend.toneTimes(), []float64{playHeadStart, playHeadStart + 4})
	for i := range backend.tones {
		if backend.tones[i].tone.Pitch != 200 {
			t.Fatalf("tone %d has pitch %v, want the selected pattern only", i, backend.tones[i].tone.Pitch)
		}
	}
	if p.s.pass != 1 {
		t.Errorf("pass got %d, want 1", p.s.pass)
	}
}

func TestShortPatternCyclesInsideStep(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{
			{ID: 1, Bars: 1, Hits: []padloop.LoopHit{{ID: 10, PadID: 0}}},
			{ID: 2, Bars: 2, Hits: []padloop.LoopHit{{ID: 20, PadID: 1}}},
		},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1, 2}, Repeats: 1},
	)
	p, backend, _ := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	for now := 0.0; now <= 4.01; now += 0.25 {
		backend.now = now
		p.tick(now)
	}
	// the one-bar pattern cycles twice while the two-bar pattern plays once
	short, long := 0, 0
	for _, tone := range backend.tones {
		switch tone.tone.Pitch {
		case 100:
			short++
		case 200:
			long++
		}
	}
	if short != 2 || long != 1 || len(backend.tones) != 3 {
		t.Fatalf("got %d short and %d long pattern hits (total %d), want 2 and 1", short, long, len(backend.tones))
	}
	got := backend.toneTimes()
	slices.Sort(got)
	expectTimes(t, got, []float64{playHeadStart, playHeadStart, playHeadStart + 2})
}

func TestEmptyStepHaltsPlayback(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1}},
		padloop.SongStep{ID: 100, Repeats: 1},
	)
	p, backend, broker := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	drainToModel(broker)
	backend.now = 0
	p.tick(0)
	if p.transport != TransportStopped {
		t.Fatalf("transport got %v, want stopped after a zero-duration step", p.transport)
	}
	msgs := drainToModel(broker)
	a, ok := findAlert(msgs, "PlaybackInvalid")
	if !ok {
		t.Fatalf("no PlaybackInvalid alert sent")
	}
	if !strings.Contains(a.Message, "no duration") {
		t.Errorf("alert message %q does not name the cause", a.Message)
	}
	if backend.stopAlls == 0 {
		t.Errorf("voices were not silenced on halt")
	}
	if ps, ok := lastPlayState(msgs); !ok || ps.Transport != TransportStopped {
		t.Errorf("last play state %+v, want stopped", ps)
	}
}

func TestVanishedStepHaltsPlayback(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1, Hits: []padloop.LoopHit{{ID: 10, PadID: 0}}}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, broker := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	backend.now = 0
	p.tick(0)
	if p.transport != TransportPlaying {
		t.Fatalf("transport got %v, want playing", p.transport)
	}
	// an edit drops the whole arrangement under the running player
	p.processMsg(playerProject([]padloop.Pattern{{ID: 1, Bars: 1}}))
	drainToModel(broker)
	backend.now = 0.5
	p.tick(0.5)
	if p.transport != TransportStopped {
		t.Fatalf("transport got %v, want stopped after the step vanished", p.transport)
	}
	if a, ok := findAlert(drainToModel(broker), "PlaybackInvalid"); !ok || !strings.Contains(a.Message, "step") {
		t.Errorf("expected a PlaybackInvalid alert naming the missing step, got %+v", a)
	}
}

func TestUnknownPadHitIsSkipped(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1, Hits: []padloop.LoopHit{
			{ID: 10, PadID: 99, BeatOffset: 0},
			{ID: 11, PadID: 0, BeatOffset: 0.5},
		}}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, broker := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	drainToModel(broker)
	backend.now = 0
	p.tick(0)
	if len(backend.tones) != 1 || backend.tones[0].tone.Pitch != 100 {
		t.Fatalf("got tones %v, want only the known pad's hit", backend.tones)
	}
	if p.transport != TransportPlaying {
		t.Errorf("transport got %v, want playing", p.transport)
	}
	msgs := drainToModel(broker)
	if _, ok := findAlert(msgs, "AudioTrigger"); ok {
		t.Errorf("a missing pad should be skipped silently")
	}
	if _, ok := findAlert(msgs, "PlaybackInvalid"); ok {
		t.Errorf("a missing pad should not halt playback")
	}
}

func TestTriggerFailureReportsAndKeepsPlaying(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1, Hits: []padloop.LoopHit{{ID: 10, PadID: 0}}}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, broker := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	drainToModel(broker)
	backend.toneErr = errors.New("no device")
	backend.now = 0
	p.tick(0)
	if len(backend.tones) != 0 {
		t.Fatalf("tone playback should have failed")
	}
	if _, ok := findAlert(drainToModel(broker), "AudioTrigger"); !ok {
		t.Fatalf("no AudioTrigger alert sent")
	}
	if p.transport != TransportPlaying {
		t.Fatalf("transport got %v, want playing despite the failed trigger", p.transport)
	}
	// the hit's slot is consumed; the failure is not retried every tick
	backend.toneErr = nil
	p.tick(0)
	if len(backend.tones) != 0 {
		t.Errorf("failed hit was rescheduled within the same cycle")
	}
}

func TestMetronomeClicks(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 2},
	)
	p, backend, _ := newTestPlayer(project)
	p.processMsg(MetronomeMsg{On: true})
	p.processMsg(StartPlayMsg{})
	for _, now := range []float64{0, 0.6, 1.2, 1.8} {
		backend.now = now
		p.tick(now)
	}
	want := []playedClick{
		{playHeadStart, true},
		{playHeadStart + 0.5, false},
		{playHeadStart + 1, false},
		{playHeadStart + 1.5, false},
		{playHeadStart + 2, true},
	}
	if len(backend.clicks) != len(want) {
		t.Fatalf("got %d clicks %v, want %d", len(backend.clicks), backend.clicks, len(want))
	}
	for i, click := range backend.clicks {
		if math.Abs(click.at-want[i].at) > 1e-9 || click.accented != want[i].accented {
			t.Errorf("click %d got %+v, want %+v", i, click, want[i])
		}
	}
}

func TestLateMetronomeSnapsToNextBeat(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 2},
	)
	p, backend, _ := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	for _, now := range []float64{0, 0.6} {
		backend.now = now
		p.tick(now)
	}
	backend.now = 1.1
	p.processMsg(MetronomeMsg{On: true})
	backend.now = 1.2
	p.tick(1.2)
	// no burst of catch-up clicks from the song start
	if len(backend.clicks) != 1 {
		t.Fatalf("got %d clicks %v, want 1", len(backend.clicks), backend.clicks)
	}
	if at := backend.clicks[0].at; math.Abs(at-(playHeadStart+1.5)) > 1e-9 {
		t.Errorf("first click at %v, want the next beat boundary %v", at, playHeadStart+1.5)
	}
	if backend.clicks[0].accented {
		t.Errorf("beat 3 should not be accented")
	}
}

func TestScheduledKeyEviction(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, _, _ := newTestPlayer(project)
	for i := 0; i < maxScheduledKeys+200; i++ {
		p.markScheduled(1, hitKey{id: i, iteration: 0})
	}
	p.evictScheduled()
	if len(p.s.order) != maxScheduledKeys {
		t.Fatalf("got %d keys, want %d", len(p.s.order), maxScheduledKeys)
	}
	if p.isScheduled(1, hitKey{id: 199, iteration: 0}) {
		t.Errorf("oldest keys should have been evicted first")
	}
	if !p.isScheduled(1, hitKey{id: 200, iteration: 0}) {
		t.Errorf("key 200 should have survived eviction")
	}
	if !p.isScheduled(1, hitKey{id: maxScheduledKeys + 199, iteration: 0}) {
		t.Errorf("newest key should have survived eviction")
	}
}

func TestStopThenStartIsAFreshRun(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{
			{ID: 1, Bars: 1, Hits: []padloop.LoopHit{{ID: 10, PadID: 0}}},
			{ID: 2, Bars: 1, Hits: []padloop.LoopHit{{ID: 20, PadID: 1}}},
		},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
		padloop.SongStep{ID: 101, ActivePatternIDs: []int{2}, Repeats: 1},
	)
	broker := NewBroker()
	backend := &fakeBackend{active: make(map[padloop.VoiceHandle]bool)}
	wake := &countingWakeLock{}
	p := NewPlayer(broker, backend, wake)
	p.processMsg(project)
	p.processMsg(StartPlayMsg{})
	msgs := drainToModel(broker)
	if ps, ok := lastPlayState(msgs); !ok || ps.Transport != TransportPlaying || ps.Beat != -1 {
		t.Fatalf("initial play state %+v, want playing with beat -1", ps)
	}
	for _, now := range []float64{0, 1, 2.1} {
		backend.now = now
		p.tick(now)
	}
	if p.s.stepIndex != 1 {
		t.Fatalf("step index got %d, want 1", p.s.stepIndex)
	}
	p.processMsg(StopPlayMsg{})
	if p.transport != TransportStopped {
		t.Fatalf("transport got %v, want stopped", p.transport)
	}
	if p.s.stepIndex != 0 {
		t.Errorf("step index got %d, want 0 after stop", p.s.stepIndex)
	}
	if backend.stopAlls == 0 {
		t.Errorf("stop did not silence the voices")
	}
	if wake.acquired != 1 || wake.released != 1 {
		t.Errorf("wake lock acquired %d released %d, want 1 and 1", wake.acquired, wake.released)
	}
	if ps, ok := lastPlayState(drainToModel(broker)); !ok || ps.Transport != TransportStopped || ps.Beat != -1 {
		t.Errorf("stop play state %+v, want stopped with beat -1", ps)
	}
	// restarting later begins a fresh pass from the top of the song
	backend.now = 10
	p.processMsg(StartPlayMsg{})
	if math.Abs(p.s.songStart-(10+playHeadStart)) > 1e-9 {
		t.Fatalf("song start got %v, want %v", p.s.songStart, 10+playHeadStart)
	}
	if p.s.pass != 0 || len(p.s.scheduled) != 0 {
		t.Fatalf("restart did not reset the run: pass %d, %d dedup entries", p.s.pass, len(p.s.scheduled))
	}
	p.tick(10)
	if n := len(backend.tones); n == 0 || math.Abs(backend.tones[n-1].at-(10+playHeadStart)) > 1e-9 {
		t.Errorf("restart did not schedule the first hit again, tones: %v", backend.toneTimes())
	}
}

func TestPrimaryControl(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, _ := newTestPlayer(project)
	p.processMsg(PrimaryControlMsg{})
	if p.transport != TransportPlaying {
		t.Fatalf("transport got %v, want playing", p.transport)
	}
	p.processMsg(PadTriggerMsg{Pad: 0, Velocity: 1})
	if len(backend.tones) != 1 {
		t.Fatalf("got %d tones, want the finger-triggered voice", len(backend.tones))
	}
	// something is sounding under the finger: stop that, not the transport
	p.processMsg(PrimaryControlMsg{})
	if p.transport != TransportPlaying {
		t.Fatalf("transport got %v, want still playing", p.transport)
	}
	if backend.Active(backend.tones[0].handle) {
		t.Fatalf("foreground voice was not stopped")
	}
	// nothing left sounding: now it toggles the transport
	p.processMsg(PrimaryControlMsg{})
	if p.transport != TransportStopped {
		t.Fatalf("transport got %v, want stopped", p.transport)
	}
}

func TestToggleAndPanic(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, _ := newTestPlayer(project)
	p.processMsg(ToggleTransportMsg{})
	if p.transport != TransportPlaying {
		t.Fatalf("transport got %v, want playing", p.transport)
	}
	p.processMsg(PadTriggerMsg{Pad: 1, Velocity: 0.5})
	p.processMsg(PanicMsg{})
	if backend.stopAlls == 0 {
		t.Errorf("panic did not silence the voices")
	}
	if len(p.foreground) != 0 {
		t.Errorf("panic left %d foreground handles", len(p.foreground))
	}
	if p.transport != TransportPlaying {
		t.Errorf("panic changed the transport to %v", p.transport)
	}
	p.processMsg(ToggleTransportMsg{})
	if p.transport != TransportStopped {
		t.Fatalf("transport got %v, want stopped", p.transport)
	}
}

func TestMIDINoteTriggersPad(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, _ := newTestPlayer(project)
	p.processMsg(MIDINoteMsg{Note: 37, Velocity: 127, On: true})
	if len(backend.tones) != 1 || backend.tones[0].tone.Pitch != 200 {
		t.Fatalf("note 37 should trigger pad 2, tones: %v", backend.tones)
	}
	if backend.tones[0].velocity != 1 {
		t.Errorf("full velocity note got %v, want 1", backend.tones[0].velocity)
	}
	p.processMsg(MIDINoteMsg{Note: 36, Velocity: 64, On: true})
	if len(backend.tones) != 2 || math.Abs(float64(backend.tones[1].velocity)-64.0/127) > 1e-6 {
		t.Fatalf("velocity 64 should scale to ~0.5, tones: %v", backend.tones)
	}
	p.processMsg(MIDINoteMsg{Note: 37, Velocity: 0, On: false}) // note off
	p.processMsg(MIDINoteMsg{Note: 99, Velocity: 127, On: true})
	p.processMsg(MIDINoteMsg{Note: 38, Velocity: 0, On: true}) // zero velocity note on
	if len(backend.tones) != 2 {
		t.Errorf("got %d tones, want 2: offs, unknown notes and zero velocity are ignored", len(backend.tones))
	}
}

func TestWindowFloorNeverPassesPendingHits(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1, Hits: []padloop.LoopHit{{ID: 10, PadID: 0, BeatOffset: 3.5}}}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, _ := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	backend.now = 0
	p.tick(0)
	if len(backend.tones) != 0 {
		t.Fatalf("the hit is outside the lookahead, nothing should play yet")
	}
	if p.s.lastScheduled != playHeadStart-anchorEpsilon {
		t.Fatalf("window floor got %v, want the start anchor", p.s.lastScheduled)
	}
	backend.now = 0.9
	p.tick(0.9)
	if len(backend.tones) != 0 {
		t.Fatalf("the hit is still outside the lookahead")
	}
	// with nothing scheduled the floor follows now-lookahead, staying behind
	// the pending hit
	if math.Abs(p.s.lastScheduled-0.4) > 1e-12 {
		t.Fatalf("window floor got %v, want 0.4", p.s.lastScheduled)
	}
	backend.now = 1.4
	p.tick(1.4)
	expectTimes(t, backend.toneTimes(), []float64{playHeadStart + 1.75})
	backend.now = 1.45
	p.tick(1.45)
	if len(backend.tones) != 1 {
		t.Fatalf("the hit played twice")
	}
}

func TestBankSwitchRestartsArrangement(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{
			{ID: 1, Bars: 1, Hits: []padloop.LoopHit{{ID: 10, PadID: 0}}},
			{ID: 3, Bars: 1, Hits: []padloop.LoopHit{{ID: 30, PadID: 2}}},
		},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
		padloop.SongStep{ID: 101, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	project.Banks[1].Arrangement = padloop.Arrangement{
		{ID: 110, ActivePatternIDs: []int{3}, Repeats: 1},
	}
	p, backend, _ := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	for _, now := range []float64{0, 1, 2.1} {
		backend.now = now
		p.tick(now)
	}
	if p.s.stepIndex != 1 {
		t.Fatalf("step index got %d, want 1", p.s.stepIndex)
	}
	sec := p.s.sectionStart
	p.processMsg(BankMsg{Index: 1})
	if p.bank != 1 || p.s.stepIndex != 0 {
		t.Fatalf("bank %d step %d, want bank 1 step 0", p.bank, p.s.stepIndex)
	}
	if p.s.sectionStart != sec {
		t.Errorf("bank switch moved the section start from %v to %v", sec, p.s.sectionStart)
	}
	// the next boundary plays the new bank's step, in phase
	for _, now := range []float64{3, 4.1} {
		backend.now = now
		p.tick(now)
	}
	last := backend.tones[len(backend.tones)-1]
	if last.tone.Pitch != 300 || math.Abs(last.at-(playHeadStart+4)) > 1e-9 {
		t.Fatalf("after the bank switch got tone %+v, want pitch 300 at %v", last, playHeadStart+4)
	}
	p.processMsg(BankMsg{Index: 9})
	if p.bank != 1 {
		t.Errorf("out-of-range bank switch changed the bank to %d", p.bank)
	}
}

func TestPlayStateReadout(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, broker := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	drainToModel(broker)
	backend.now = 0.6
	p.tick(0.6)
	ps, ok := lastPlayState(drainToModel(broker))
	if !ok {
		t.Fatalf("no play state sent")
	}
	if ps.Beat != 1 || ps.Downbeat {
		t.Errorf("beat got %d (downbeat %v), want 1 off the downbeat", ps.Beat, ps.Downbeat)
	}
	if math.Abs(ps.Progress-0.57/2) > 1e-9 {
		t.Errorf("progress got %v, want %v", ps.Progress, 0.57/2)
	}
	if math.Abs(ps.SongPos-0.57) > 1e-9 || math.Abs(ps.TotalDur-2) > 1e-9 {
		t.Errorf("song position got %v of %v, want 0.57 of 2", ps.SongPos, ps.TotalDur)
	}
	// crossing the boundary reports the landing downbeat and the new pass
	backend.now = 2.1
	p.tick(2.1)
	ps, _ = lastPlayState(drainToModel(broker))
	if ps.Beat != 4 || !ps.Downbeat {
		t.Errorf("boundary beat got %d (downbeat %v), want 4 on the downbeat", ps.Beat, ps.Downbeat)
	}
	if ps.Pass != 1 {
		t.Errorf("pass got %d, want 1", ps.Pass)
	}
	if math.Abs(ps.Progress-0.07/2) > 1e-9 {
		t.Errorf("progress got %v, want %v", ps.Progress, 0.07/2)
	}
}

func TestRestartWhilePlaying(t *testing.T) {
	project := playerProject(
		[]padloop.Pattern{{ID: 1, Bars: 1, Hits: []padloop.LoopHit{{ID: 10, PadID: 0}}}},
		padloop.SongStep{ID: 100, ActivePatternIDs: []int{1}, Repeats: 1},
	)
	p, backend, _ := newTestPlayer(project)
	p.processMsg(StartPlayMsg{})
	for _, now := range []float64{0, 0.6} {
		backend.now = now
		p.tick(now)
	}
	backend.now = 1
	p.processMsg(StartPlayMsg{})
	if math.Abs(p.s.songStart-(1+playHeadStart)) > 1e-9 || p.s.pass != 0 {
		t.Fatalf("restart while playing did not rewind: start %v pass %d", p.s.songStart, p.s.pass)
	}
	p.tick(1)
	last := backend.tones[len(backend.tones)-1]
	if math.Abs(last.at-(1+playHeadStart)) > 1e-9 {
		t.Fatalf("restart did not schedule from the top, tones: %v", backend.toneTimes())
	}
}
