package display

import (
	"math"
	"time"

	"github.com/veandco/go-sdl2/sdl"
)

// toneFreq/sampleRate/amplitude describe the constant square wave played
// while the guest sound timer is nonzero, in place of massung's audio.go
// cgo Tone callback.
const (
	sampleRate  = 8000
	toneFreq    = 440
	amplitude   = 0.25
	bufferBytes = sampleRate / 30 // one queue-refill's worth, ~33ms
)

func (w *Window) openAudio() error {
	spec := &sdl.AudioSpec{
		Freq:     sampleRate,
		Format:   sdl.AUDIO_F32,
		Channels: 1,
		Samples:  256,
		// No Callback: rather than massung's cgo-exported Tone function,
		// silence/tone is pushed with QueueAudio from SetSound, so the
		// package stays cgo-free.
	}

	dev, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		return err
	}
	w.audio = dev
	sdl.PauseAudioDevice(w.audio, false)
	return nil
}

func (w *Window) closeAudio() {
	if w.tonePump != nil {
		close(w.tonePump)
		w.tonePump = nil
	}
	if w.audio != 0 {
		sdl.CloseAudioDevice(w.audio)
	}
}

// SetSound implements vm.Display: start or stop a constant square-wave
// tone. A background goroutine keeps the device's queue topped up for as
// long as the tone is active; SetSound(false) stops it and clears the
// queue so no trailing samples play after the guest timer reaches zero.
func (w *Window) SetSound(active bool) {
	w.toneMu.Lock()
	defer w.toneMu.Unlock()

	if active {
		if w.tonePump != nil {
			return
		}
		stop := make(chan struct{})
		w.tonePump = stop
		go w.pumpTone(stop)
		return
	}

	if w.tonePump != nil {
		close(w.tonePump)
		w.tonePump = nil
	}
	sdl.ClearQueuedAudio(w.audio)
}

func (w *Window) pumpTone(stop chan struct{}) {
	buf := squareWave()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if sdl.GetQueuedAudioSize(w.audio) < bufferBytes*4 {
				sdl.QueueAudio(w.audio, buf)
			}
		}
	}
}

func squareWave() []byte {
	samples := make([]float32, bufferBytes)
	period := sampleRate / toneFreq
	for i := range samples {
		if (i % period) < period/2 {
			samples[i] = amplitude
		} else {
			samples[i] = -amplitude
		}
	}
	return f32SliceToBytes(samples)
}

func f32SliceToBytes(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		bits := math.Float32bits(s)
		buf[i*4+0] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	return buf
}
