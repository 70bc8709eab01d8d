package engine

import (
	"time"
)

// TransportState is the player's transport: stopped, playing, or playing
// while capturing pad hits into the armed pattern.
type TransportState int

const (
	TransportStopped TransportState = iota
	TransportPlaying
	TransportRecording
)

func (s TransportState) String() string {
	switch s {
	case TransportStopped:
		return "Stopped"
	case TransportPlaying:
		return "Playing"
	case TransportRecording:
		return "Recording"
	}
	return "?"
}

// PlayMode selects what the scheduler walks through: the whole arrangement
// of the current bank, or just the selected pattern on repeat.
type PlayMode int

const (
	ModeSong PlayMode = iota
	ModePattern
)

func (m PlayMode) String() string {
	switch m {
	case ModeSong:
		return "Song"
	case ModePattern:
		return "Pattern"
	}
	return "?"
}

// Messages to the player. Anything sent to broker.ToPlayer should be one of
// these, or a padloop.Project (a fresh copy of the store after a change).
type (
	// StartPlayMsg starts the transport from the top of the song, optionally
	// capturing pad hits from the first beat on.
	StartPlayMsg struct{ Recording bool }

	// StopPlayMsg stops the transport and silences everything.
	StopPlayMsg struct{}

	// RecordingMsg toggles hit capture without touching the timeline.
	RecordingMsg struct{ On bool }

	// ToggleTransportMsg starts playback when stopped and stops it
	// otherwise.
	ToggleTransportMsg struct{}

	// StopForegroundMsg silences pad voices played by the user's fingers
	// without touching the sequenced playback.
	StopForegroundMsg struct{}

	// PrimaryControlMsg is the one-button transport: it stops foreground
	// voices if any are sounding, and toggles the transport otherwise. The
	// player decides, as it owns the voice handles.
	PrimaryControlMsg struct{}

	// PanicMsg makes the player silence every voice immediately, transport
	// state unchanged.
	PanicMsg struct{}

	ModeMsg           struct{ Mode PlayMode }
	BankMsg           struct{ Index int }
	LoopPinMsg        struct{ Pin bool }
	MetronomeMsg      struct{ On bool }
	CurrentPatternMsg struct{ ID int }

	// PadTriggerMsg plays a pad right away and, when recording, captures it
	// into the armed pattern.
	PadTriggerMsg struct {
		Pad      int
		Velocity float32
	}
)

// PadFlashMsg is sent by the player to the model so the UI can light up the
// pad when its scheduled hit actually sounds, not when it is queued.
type PadFlashMsg struct {
	Pad   int
	Delay time.Duration
}

type (
	// TransportModel provides the transport controls.
	TransportModel Model

	playingBool   Model
	recordingBool Model

	toggleTransport Model
	primaryControl  Model
	stopForeground  Model
	panicPlayer     Model
)

func (m *Model) Transport() *TransportModel { return (*TransportModel)(m) }

func (v *TransportModel) Playing() Bool          { return MakeBool((*playingBool)(v)) }
func (v *TransportModel) Recording() Bool        { return MakeBool((*recordingBool)(v)) }
func (v *TransportModel) Toggle() Action         { return MakeAction((*toggleTransport)(v)) }
func (v *TransportModel) PrimaryControl() Action { return MakeAction((*primaryControl)(v)) }
func (v *TransportModel) StopForeground() Action { return MakeAction((*stopForeground)(v)) }
func (v *TransportModel) Panic() Action          { return MakeAction((*panicPlayer)(v)) }

// TriggerPad plays the pad of the current bank at the given velocity. When
// the transport is recording, the player also captures it into the armed
// pattern; when it is stopped, recording a pad starts the transport first.
func (v *TransportModel) TriggerPad(pad int, velocity float32) {
	TrySend(v.broker.ToPlayer, any(PadTriggerMsg{Pad: pad, Velocity: velocity}))
}

func (v *playingBool) Value() bool { return v.playState.Transport != TransportStopped }
func (v *playingBool) SetValue(value bool) {
	if value {
		TrySend(v.broker.ToPlayer, any(StartPlayMsg{}))
	} else {
		TrySend(v.broker.ToPlayer, any(StopPlayMsg{}))
	}
}

func (v *recordingBool) Value() bool { return v.playState.Transport == TransportRecording }
func (v *recordingBool) SetValue(value bool) {
	if value && v.playState.Transport == TransportStopped {
		TrySend(v.broker.ToPlayer, any(StartPlayMsg{Recording: true}))
		return
	}
	TrySend(v.broker.ToPlayer, any(RecordingMsg{On: value}))
}

func (v *toggleTransport) Do() { TrySend(v.broker.ToPlayer, any(ToggleTransportMsg{})) }
func (v *primaryControl) Do()  { TrySend(v.broker.ToPlayer, any(PrimaryControlMsg{})) }
func (v *stopForeground) Do()  { TrySend(v.broker.ToPlayer, any(StopForegroundMsg{})) }
func (v *panicPlayer) Do()     { TrySend(v.broker.ToPlayer, any(PanicMsg{})) }
