// Package oto implements the audio backend on top of the ebitengine/oto
// library: a software mixer of synthesized percussion voices feeding one oto
// player. The number of frames pulled by the device so far doubles as the
// audio clock, so scheduling times are sample positions and never drift
// against the audio actually played.
package oto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/padloop/padloop"
	"github.com/padloop/padloop/engine"
)

const (
	sampleRate = 44100
	frameBytes = 8 // 2 channels x 4 bytes (float32)
)

type (
	// Backend renders all scheduled voices into one stereo float32 stream
	// and implements padloop.AudioBackend on top of it.
	Backend struct {
		mixer  *mixer
		ctx    *oto.Context
		player *oto.Player
	}

	mixer struct {
		mu         sync.Mutex
		voices     []*voice
		nextHandle padloop.VoiceHandle
		closed     bool

		frames atomic.Int64

		broker  *engine.Broker
		scratch padloop.AudioBuffer
	}
)

var _ padloop.AudioBackend = (*Backend)(nil)

// NewBackend opens the audio device and starts pulling. The broker is
// optional; when given, every rendered buffer is also handed to the loudness
// detector through it.
func NewBackend(broker *engine.Broker) (*Backend, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("creating oto context failed: %w", err)
	}
	<-ready
	m := &mixer{broker: broker}
	b := &Backend{mixer: m, ctx: ctx}
	b.player = ctx.NewPlayer(m)
	b.player.Play()
	return b, nil
}

func (b *Backend) Close() error {
	b.mixer.mu.Lock()
	b.mixer.closed = true
	b.mixer.voices = nil
	b.mixer.mu.Unlock()
	return b.player.Close()
}

func (b *Backend) Now() float64 { return b.mixer.Now() }

func (b *Backend) PlayTone(tone padloop.Tone, velocity float32, at float64) (padloop.VoiceHandle, error) {
	return b.mixer.add(tone, velocity, at)
}

func (b *Backend) PlayClick(at float64, accented bool) error {
	_, err := b.mixer.add(clickTone(accented), 1, at)
	return err
}

func (b *Backend) Stop(handle padloop.VoiceHandle) { b.mixer.stop(handle) }

func (b *Backend) Active(handle padloop.VoiceHandle) bool { return b.mixer.active(handle) }

func (b *Backend) StopAll() { b.mixer.stopAll() }

func (m *mixer) Now() float64 {
	return float64(m.frames.Load()) / sampleRate
}

func (m *mixer) add(tone padloop.Tone, velocity float32, at float64) (padloop.VoiceHandle, error) {
	if math.IsNaN(at) || math.IsInf(at, 0) {
		return 0, errors.New("invalid trigger time")
	}
	startFrame := int64(at * sampleRate)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.New("audio backend is closed")
	}
	if now := m.frames.Load(); startFrame < now {
		startFrame = now // overdue, play as soon as possible
	}
	m.nextHandle++
	v := newVoice(m.nextHandle, tone, velocity, startFrame)
	m.voices = append(m.voices, v)
	return v.handle, nil
}

func (m *mixer) stop(handle padloop.VoiceHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.voices {
		if v.handle == handle {
			v.stopped = true
			return
		}
	}
}

func (m *mixer) active(handle padloop.VoiceHandle) bool {
	now := m.frames.Load()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.voices {
		if v.handle == handle {
			return !v.stopped && v.start+v.length > now
		}
	}
	return false
}

func (m *mixer) stopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = m.voices[:0]
}

// Read renders the next chunk of audio. oto calls this from its own
// goroutine; the engine only ever touches the mixer through the locked
// methods above.
func (m *mixer) Read(p []byte) (int, error) {
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	start := m.frames.Load()
	buf := m.getBuffer(frames)

	m.mu.Lock()
	keep := m.voices[:0]
	for _, v := range m.voices {
		if !v.stopped && v.render(buf, start) {
			keep = append(keep, v)
		}
	}
	for i := len(keep); i < len(m.voices); i++ {
		m.voices[i] = nil
	}
	m.voices = keep
	m.mu.Unlock()

	for i, frame := range buf {
		binary.LittleEndian.PutUint32(p[i*frameBytes:], math.Float32bits(frame[0]))
		binary.LittleEndian.PutUint32(p[i*frameBytes+4:], math.Float32bits(frame[1]))
	}
	m.frames.Add(int64(frames))
	m.putBuffer(buf)
	return frames * frameBytes, nil
}

// getBuffer returns a zeroed stereo buffer of the given length, from the
// broker's pool when there is one.
func (m *mixer) getBuffer(frames int) padloop.AudioBuffer {
	var buf padloop.AudioBuffer
	if m.broker != nil {
		buf = *m.broker.GetAudioBuffer()
	} else {
		buf = m.scratch
	}
	if cap(buf) < frames {
		buf = make(padloop.AudioBuffer, frames)
	} else {
		buf = buf[:frames]
		for i := range buf {
			buf[i] = [2]float32{}
		}
	}
	return buf
}

// putBuffer hands the rendered buffer to the detector, or back to wherever
// it came from.
func (m *mixer) putBuffer(buf padloop.AudioBuffer) {
	if m.broker == nil {
		m.scratch = buf
		return
	}
	boxed := &buf
	if !engine.TrySend(m.broker.ToDetector, engine.MsgToDetector{Data: boxed}) {
		m.broker.PutAudioBuffer(boxed)
	}
}
