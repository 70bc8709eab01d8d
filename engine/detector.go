package engine

import (
	"math"

	"github.com/padloop/padloop"
	"github.com/viterin/vek/vek32"
)

type (
	// DetectorResult is the output level measurement shown by the UI meter.
	DetectorResult struct {
		Volume [2]float32 // smoothed loudness per channel, dBFS
		Peak   [2]float32 // held sample peak per channel, dBFS
	}

	// Detector computes output levels from the buffers the audio backend
	// taps off its mixer. It runs on its own goroutine; buffers arrive
	// through the broker and are returned to the buffer pool after use.
	Detector struct {
		broker   *Broker
		analyzer VolumeAnalyzer
		peaks    [2]float32 // linear, held until reset
		scratch  [2][]float32
	}
)

func NewDetector(broker *Broker) *Detector {
	d := &Detector{
		broker: broker,
		analyzer: VolumeAnalyzer{
			Attack:  0.3,
			Release: 1.5,
			Min:     -100,
			Max:     20,
		},
	}
	d.analyzer.Reset()
	return d
}

func (d *Detector) Run() {
	defer close(d.broker.FinishedDetector)
	for {
		select {
		case msg := <-d.broker.ToDetector:
			if msg.Quit {
				return
			}
			if msg.Reset {
				d.reset()
			}
			switch data := msg.Data.(type) {
			case *padloop.AudioBuffer:
				d.update(*data)
				d.broker.PutAudioBuffer(data)
			}
		case <-d.broker.CloseDetector:
			return
		}
	}
}

func (d *Detector) reset() {
	d.analyzer.Reset()
	d.peaks = [2]float32{}
}

func (d *Detector) update(buf padloop.AudioBuffer) {
	if len(buf) == 0 {
		return
	}
	for c := 0; c < 2; c++ {
		s := d.scratch[c][:0]
		for _, frame := range buf {
			s = append(s, frame[c])
		}
		d.scratch[c] = s
		if peak := max(vek32.Max(s), -vek32.Min(s)); peak > d.peaks[c] {
			d.peaks[c] = peak
		}
	}
	d.analyzer.Update(buf)
	var res DetectorResult
	for c := 0; c < 2; c++ {
		res.Volume[c] = float32(d.analyzer.Volume[c])
		res.Peak[c] = float32(20 * math.Log10(float64(d.peaks[c])+1e-10))
	}
	TrySend(d.broker.ToModel, MsgToModel{HasDetectorResult: true, DetectorResult: res})
}
