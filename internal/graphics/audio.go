//go:build !headless
// +build !headless

package graphics

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"golang.org/x/sync/errgroup"
)

// AudioSink adapts the emulator's pulled int16 PCM samples to the io.Reader
// ebiten/audio's Player expects to stream from continuously. Push and Read
// run on different goroutines (the feeder loop and ebiten's audio driver),
// so access to buf is serialized by mu.
type AudioSink struct {
	player *audio.Player
	mu     sync.Mutex
	buf    bytes.Buffer
}

// NewAudioSink opens an ebiten audio context at sampleRate and starts a
// player streaming from it. The NES mixes to a single mono channel; Push
// duplicates each sample across both of ebiten's stereo channels.
func NewAudioSink(sampleRate int) (*AudioSink, error) {
	sink := &AudioSink{}
	player, err := audio.NewContext(sampleRate).NewPlayer(sink)
	if err != nil {
		return nil, fmt.Errorf("graphics: create audio player: %w", err)
	}
	sink.player = player
	player.Play()
	return sink, nil
}

// Read implements io.Reader for the underlying ebiten.audio.Player. An
// empty buffer (the emulator hasn't pushed samples yet, or is stalled)
// reads as silence rather than blocking the audio driver.
func (s *AudioSink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf.Len() == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	return s.buf.Read(p)
}

// Push appends one batch of mono PCM samples as little-endian stereo frames.
func (s *AudioSink) Push(samples []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sample := range samples {
		lo, hi := byte(sample), byte(sample>>8)
		s.buf.WriteByte(lo)
		s.buf.WriteByte(hi)
		s.buf.WriteByte(lo)
		s.buf.WriteByte(hi)
	}
}

// Close stops playback.
func (s *AudioSink) Close() error {
	return s.player.Close()
}

// RunWithAudio runs the Ebitengine game loop and an audio-feeder goroutine
// side by side, wired through an errgroup so either one's failure (or the
// window closing) tears the other down. pull is called 60 times a second
// and should return the engine's next batch of resampled audio — decoupling
// audio pacing from however often Update actually drives the emulator core.
func (w *EbitengineWindow) RunWithAudio(sink *AudioSink, pull func() []int16) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		return w.Run()
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Second / 60)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				sink.Push(pull())
			}
		}
	})
	return g.Wait()
}
