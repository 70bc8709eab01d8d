// Package padloop contains the data model and pure timing math of a live pad
// sequencer: patterns of recorded pad hits, song steps chaining patterns into
// an arrangement, and the bank structure grouping arrangements with pad kits.
// The playback engine lives in the engine package; audio output in the oto
// package.
package padloop

type (
	// AudioBuffer is a buffer of stereo audio samples of the form
	// [[l0,r0],[l1,r1],[l2,r2]..]
	AudioBuffer [][2]float32

	// VoiceHandle identifies one scheduled sound in the audio backend, so
	// individual foreground voices can be stopped or queried without touching
	// sequenced playback.
	VoiceHandle int64

	// AudioBackend is the audio rendering collaborator. It owns the only
	// authoritative clock: Now() is the number of seconds of audio rendered so
	// far, monotonic and unaffected by wall-clock jumps. All scheduling
	// methods take absolute times on that clock; times in the past play as
	// soon as possible.
	AudioBackend interface {
		// Now returns the current audio clock time in seconds.
		Now() float64
		// PlayTone schedules a percussive tone at time at, scaled by velocity
		// in [0,1]. The returned handle stays valid until the voice finishes.
		PlayTone(tone Tone, velocity float32, at float64) (VoiceHandle, error)
		// PlayClick schedules a metronome click at time at.
		PlayClick(at float64, accented bool) error
		// Stop silences the voice with the given handle, if still sounding.
		Stop(handle VoiceHandle)
		// Active reports whether the voice is still sounding or pending.
		Active(handle VoiceHandle) bool
		// StopAll silences every scheduled and sounding voice immediately.
		StopAll()
	}

	// WakeLock keeps the host from idling (display sleep, app nap) while a
	// performance is running. Acquire and Release may be called unbalanced;
	// implementations must tolerate repeats.
	WakeLock interface {
		Acquire()
		Release()
	}

	nopWakeLock struct{}
)

func (nopWakeLock) Acquire() {}
func (nopWakeLock) Release() {}

// NopWakeLock returns a WakeLock that does nothing, for hosts that have no
// sleep inhibition to manage.
func NopWakeLock() WakeLock { return nopWakeLock{} }
