package engine

import (
	"log"
	"time"

	"github.com/padloop/padloop"
)

type (
	// modelData is the part of the model that gets saved to the recovery
	// file: the project itself plus all the session state worth restoring
	// after a crash. Everything in it must be JSON-serializable.
	modelData struct {
		Project padloop.Project

		Mode      PlayMode
		BankIndex int
		StepIndex int // selected step in the current bank's arrangement
		PatternID int // selected pattern; the one playing in pattern mode
		LoopPin   bool
		Metronome bool

		MaxID int // largest positive id handed out so far

		FilePath             string
		ChangedSinceSave     bool
		RecoveryFilePath     string
		ChangedSinceRecovery bool
	}

	// Model owns the pattern and arrangement store and all the user-facing
	// operations on it. It runs on the main goroutine; every mutation ends by
	// sending a fresh copy of the project to the player, so the engine
	// goroutine never reads the model's data directly.
	Model struct {
		d modelData

		undoStack       []modelData
		redoStack       []modelData
		prevUndoKind    string
		undoSkipCounter int

		changeLevel    int
		changeCancel   bool
		changeKind     string
		changeType     ChangeType
		changeSeverity ChangeSeverity
		pendingUndo    modelData

		derived derivedModelData

		playState       PlayState
		flashes         map[int]flashWindow
		detectorResult  DetectorResult
		detectorWorking bool

		alerts        []Alert
		alertExpiries []time.Time

		broker *Broker
	}

	// ChangeType is a bitmask of the parts of the store a change touched,
	// used to decide which derived data needs recomputing.
	ChangeType int

	// ChangeSeverity is used to coalesce rapid repeats of the same minor
	// change (e.g. scrolling a tempo value) into a single undo entry.
	ChangeSeverity int

	flashWindow struct {
		on, off time.Time
	}
)

const (
	NoChange      ChangeType = 0
	PatternChange ChangeType = 1 << iota
	ArrangementChange
	ParamsChange
)

const (
	MinorChange ChangeSeverity = iota
	MajorChange
)

const maxUndo = 256

// padFlashDuration is how long a pad's active indicator stays lit after its
// hit sounds.
const padFlashDuration = 80 * time.Millisecond

var undoSkip = map[string]int{
	"BPMInt":     10,
	"RepeatsInt": 10,
}

func NewModel(broker *Broker, recoveryFilePath string) *Model {
	m := &Model{
		broker:  broker,
		flashes: make(map[int]flashWindow),
	}
	m.d.Project = defaultProject.Copy()
	m.d.RecoveryFilePath = recoveryFilePath
	m.d.MaxID = m.d.Project.MaxID()
	if len(m.d.Project.Patterns) > 0 {
		m.d.PatternID = m.d.Project.Patterns[0].ID
	}
	m.updateDerived(PatternChange | ArrangementChange | ParamsChange)
	m.playState.Beat = -1
	m.sendToPlayer()
	m.sendSettings()
	return m
}

// change returns a function that must be deferred to close the change. All
// mutations of m.d go through a change; the deferred close pushes the undo
// snapshot, refreshes derived data and sends the new project to the player.
// Nested changes are counted and only the outermost close takes effect.
// Setting m.changeCancel = true inside the window reverts the mutation.
func (m *Model) change(kind string, t ChangeType, severity ChangeSeverity) func() {
	if m.changeLevel == 0 {
		m.pendingUndo = m.d.Copy()
		m.changeKind = kind
		m.changeType = t
		m.changeSeverity = severity
		m.changeCancel = false
	} else {
		m.changeType |= t
		if severity > m.changeSeverity {
			m.changeSeverity = severity
		}
	}
	m.changeLevel++
	return func() {
		m.changeLevel--
		if m.changeLevel > 0 {
			return
		}
		if m.changeCancel {
			m.d = m.pendingUndo
			return
		}
		m.saveUndo(m.pendingUndo, m.changeKind, m.changeSeverity)
		m.d.ChangedSinceSave = true
		m.d.ChangedSinceRecovery = true
		m.updateDerived(m.changeType)
		m.sendToPlayer()
	}
}

func (m *Model) saveUndo(prev modelData, kind string, severity ChangeSeverity) {
	if kind == m.prevUndoKind && severity == MinorChange && m.undoSkipCounter < undoSkip[kind] {
		m.undoSkipCounter++
		return
	}
	m.prevUndoKind = kind
	m.undoSkipCounter = 0
	if len(m.undoStack) >= maxUndo {
		copy(m.undoStack, m.undoStack[len(m.undoStack)-maxUndo+1:])
		m.undoStack = m.undoStack[:maxUndo-1]
	}
	m.undoStack = append(m.undoStack, prev)
	m.redoStack = m.redoStack[:0]
}

func (m *Model) sendToPlayer() {
	TrySend(m.broker.ToPlayer, any(m.d.Project.Copy()))
}

func (m *Model) sendSettings() {
	TrySend(m.broker.ToPlayer, any(ModeMsg{m.d.Mode}))
	TrySend(m.broker.ToPlayer, any(BankMsg{m.d.BankIndex}))
	TrySend(m.broker.ToPlayer, any(LoopPinMsg{m.d.LoopPin}))
	TrySend(m.broker.ToPlayer, any(MetronomeMsg{m.d.Metronome}))
	TrySend(m.broker.ToPlayer, any(CurrentPatternMsg{m.d.PatternID}))
}

// nextID hands out a fresh positive id for a pattern, step or edited hit.
func (m *Model) nextID() int {
	m.d.MaxID++
	return m.d.MaxID
}

// ProcessMsg handles one message from the player or detector goroutines. The
// owner of the model calls this from its event loop for every message read
// from broker.ToModel.
func (m *Model) ProcessMsg(msg MsgToModel) {
	if msg.HasPlayState {
		m.playState = msg.PlayState
	}
	if msg.HasDetectorResult {
		m.detectorResult = msg.DetectorResult
		m.detectorWorking = true
	}
	switch data := msg.Data.(type) {
	case Alert:
		m.Alerts().AddAlert(data)
	case PadFlashMsg:
		on := time.Now().Add(data.Delay)
		m.flashes[data.Pad] = flashWindow{on: on, off: on.Add(padFlashDuration)}
	case RecordedHitMsg:
		m.applyRecordedHit(data)
	case nil:
	}
}

// applyRecordedHit writes a hit captured by the player into the store. The
// player already plays from its own copy, so the hit is not echoed back; it
// also is not undoable on its own. A take is undone by clearing the pattern,
// not hit by hit.
func (m *Model) applyRecordedHit(msg RecordedHitMsg) {
	pat, ok := m.d.Project.Pattern(msg.PatternID)
	if !ok {
		return
	}
	pat.AppendHit(msg.Hit)
	m.d.ChangedSinceSave = true
	m.d.ChangedSinceRecovery = true
	m.updateDerived(PatternChange)
}

// PlayState returns the most recent playback state reported by the player.
func (m *Model) PlayState() PlayState { return m.playState }

// FlashedPads returns the pad indices whose active indicator should currently
// be lit, and drops the expired windows.
func (m *Model) FlashedPads() []int {
	now := time.Now()
	var ret []int
	for pad, w := range m.flashes {
		if now.After(w.off) {
			delete(m.flashes, pad)
			continue
		}
		if now.After(w.on) {
			ret = append(ret, pad)
		}
	}
	return ret
}

// DetectorResult returns the latest output level measurement.
func (m *Model) DetectorResult() (DetectorResult, bool) {
	return m.detectorResult, m.detectorWorking
}

func (d *modelData) Copy() modelData {
	ret := *d
	ret.Project = d.Project.Copy()
	return ret
}

// currentBank returns the selected bank. The bank index is kept in range by
// its binding, but a replaced project can arrive with the old index still
// set, so out of range falls back to bank 0.
func (m *Model) currentBank() *padloop.Bank {
	i := m.d.BankIndex
	if i < 0 || i >= len(m.d.Project.Banks) {
		i = 0
	}
	return &m.d.Project.Banks[i]
}

// currentStep returns the selected step of the current bank, or nil if the
// arrangement is empty.
func (m *Model) currentStep() *padloop.SongStep {
	arr := m.currentBank().Arrangement
	if len(arr) == 0 {
		return nil
	}
	i := min(max(m.d.StepIndex, 0), len(arr)-1)
	return &arr[i]
}

// Close shuts down the player and detector goroutines and writes the
// recovery file, waiting a moment for each goroutine to finish.
func (m *Model) Close() {
	TrySend(m.broker.ClosePlayer, struct{}{})
	TrySend(m.broker.CloseDetector, struct{}{})
	select {
	case <-m.broker.FinishedPlayer:
	case <-time.After(3 * time.Second):
		log.Println("player did not close gracefully")
	}
	select {
	case <-m.broker.FinishedDetector:
	case <-time.After(3 * time.Second):
		log.Println("detector did not close gracefully")
	}
	if err := m.SaveRecovery(); err != nil {
		log.Printf("could not save recovery file: %v", err)
	}
}

// currentPattern returns the selected pattern, falling back to the first
// pattern of the pool.
func (m *Model) currentPattern() *padloop.Pattern {
	if pat, ok := m.d.Project.Pattern(m.d.PatternID); ok {
		return pat
	}
	if len(m.d.Project.Patterns) > 0 {
		return &m.d.Project.Patterns[0]
	}
	return nil
}
