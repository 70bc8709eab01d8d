package engine

import (
	"sync"
	"time"

	"github.com/padloop/padloop"
)

type (
	// Broker is the centralized message broker for the engine. It carries
	// messages between the player (engine goroutine), the model (main/UI
	// goroutine) and the loudness detector. Each recipient has one channel,
	// so all communication is many-to-one. The broker also has a sync.Pool of
	// *padloop.AudioBuffers, from which the audio backend can get and return
	// buffers to pass rendered audio around without allocating every time.
	//
	// For closing goroutines, the broker has two channels per goroutine:
	// CloseXXX and FinishedXXX. CloseXXX has a capacity of 1, so sending
	// struct{}{} to it never blocks; if it is already full, someone else has
	// already requested the closure and dropping the message is fine.
	// FinishedXXX is never sent to, only closed, so "<-FinishedXXX" waits
	// until the goroutine has cleaned up; combine with a timeout to avoid
	// deadlocks on a stuck goroutine.
	Broker struct {
		ToModel    chan MsgToModel
		ToPlayer   chan any
		ToDetector chan MsgToDetector

		ClosePlayer   chan struct{}
		CloseDetector chan struct{}

		FinishedPlayer   chan struct{}
		FinishedDetector chan struct{}

		bufferPool sync.Pool
	}

	// MsgToModel is a message sent to the model. The frequently sent playback
	// state and detector results are unboxed fields to avoid allocations; the
	// infrequent messages travel boxed in Data.
	MsgToModel struct {
		HasPlayState bool
		PlayState    PlayState

		HasDetectorResult bool
		DetectorResult    DetectorResult

		Data any
	}

	// MsgToDetector carries audio buffers (boxed *padloop.AudioBuffer) and
	// control flags to the loudness detector goroutine.
	MsgToDetector struct {
		Reset bool
		Quit  bool
		Data  any
	}

	// PlayState is the player's view of the transport, refreshed once per
	// tick and mirrored by the model for the UI to read.
	PlayState struct {
		Transport TransportState
		Mode      PlayMode
		Progress  float64 // fraction of the current step, 0..1
		SongPos   float64 // seconds into the looping song readout
		TotalDur  float64 // seconds of one full pass of the song
		StepIndex int
		Pass      int
		Beat      int  // visual beat index within the step, -1 before the start
		Downbeat  bool // true when Beat is the first of a bar
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:         make(chan any, 1024),
		ToModel:          make(chan MsgToModel, 1024),
		ToDetector:       make(chan MsgToDetector, 1024),
		ClosePlayer:      make(chan struct{}, 1),
		CloseDetector:    make(chan struct{}, 1),
		FinishedPlayer:   make(chan struct{}),
		FinishedDetector: make(chan struct{}),
		bufferPool:       sync.Pool{New: func() any { return &padloop.AudioBuffer{} }},
	}
}

// GetAudioBuffer returns an empty audio buffer from the buffer pool. After
// use, return it with PutAudioBuffer.
func (b *Broker) GetAudioBuffer() *padloop.AudioBuffer {
	return b.bufferPool.Get().(*padloop.AudioBuffer)
}

// PutAudioBuffer returns an audio buffer to the buffer pool, resetting its
// length (but keeping the capacity) if needed.
func (b *Broker) PutAudioBuffer(buf *padloop.AudioBuffer) {
	if len(*buf) > 0 {
		*buf = (*buf)[:0]
	}
	b.bufferPool.Put(buf)
}

// TrySend sends a value to a channel if it is not full. It is guaranteed to
// be non-blocking. Returns true if the value was sent.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value is received from the channel or the
// timeout expires. ok is false on timeout or when the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
