// Package mock provides test doubles for the playback capability interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/newsbreeze/internal/playback"
)

// Source is a mock playback.AudioSource.
type Source struct {
	mu sync.Mutex

	// Payload is returned by Audio when Err is nil.
	Payload []byte

	// Err, if non-nil, is returned by Audio.
	Err error

	// Block, if non-nil, makes Audio wait until it is closed.
	Block chan struct{}

	// Texts records the text of every call.
	Texts []string
}

// Audio records the call and returns Payload, Err.
func (s *Source) Audio(_ context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	s.Texts = append(s.Texts, text)
	audio, err, block := s.Payload, s.Err, s.Block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	return audio, err
}

// CallCount returns the number of Audio calls. Thread-safe.
func (s *Source) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Texts)
}

// Player is a mock playback.AudioPlayer.
type Player struct {
	mu sync.Mutex

	// Err, if non-nil, is returned by Play.
	Err error

	// Block, if true, makes Play wait until ctx is cancelled.
	Block bool

	// Started, if non-nil, receives a value when Play begins.
	Started chan struct{}

	// Played records the size of every payload played.
	Played []int
}

// Play records the call and returns Err.
func (p *Player) Play(ctx context.Context, audio []byte) error {
	p.mu.Lock()
	p.Played = append(p.Played, len(audio))
	err, block, started := p.Err, p.Block, p.Started
	p.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

// CallCount returns the number of Play calls. Thread-safe.
func (p *Player) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Played)
}

// Speaker is a mock playback.Speaker that emits Started then Ended, or
// Started then Error when SpeakErr is set.
type Speaker struct {
	mu sync.Mutex

	// StartErr, if non-nil, is returned by Speak.
	StartErr error

	// SpeakErr, if non-nil, is delivered as a SpeechError event.
	SpeakErr error

	// Texts records the text of every call.
	Texts []string
}

// Speak records the call and returns a closed-after-use event channel.
func (s *Speaker) Speak(_ context.Context, text string) (<-chan playback.SpeechEvent, error) {
	s.mu.Lock()
	s.Texts = append(s.Texts, text)
	startErr, speakErr := s.StartErr, s.SpeakErr
	s.mu.Unlock()

	if startErr != nil {
		return nil, startErr
	}
	ch := make(chan playback.SpeechEvent, 2)
	ch <- playback.SpeechEvent{Kind: playback.SpeechStarted}
	if speakErr != nil {
		ch <- playback.SpeechEvent{Kind: playback.SpeechError, Err: speakErr}
	} else {
		ch <- playback.SpeechEvent{Kind: playback.SpeechEnded}
	}
	close(ch)
	return ch, nil
}

// CallCount returns the number of Speak calls. Thread-safe.
func (s *Speaker) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Texts)
}

// Prompter is a mock playback.Prompter.
type Prompter struct {
	mu sync.Mutex

	// Answer is returned by ConfirmFallback.
	Answer bool

	// Reasons records the reason of every call.
	Reasons []string
}

// ConfirmFallback records the call and returns Answer.
func (p *Prompter) ConfirmFallback(_ context.Context, _ string, reason string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Reasons = append(p.Reasons, reason)
	return p.Answer
}

// Compile-time interface assertions.
var (
	_ playback.AudioSource = (*Source)(nil)
	_ playback.AudioPlayer = (*Player)(nil)
	_ playback.Speaker     = (*Speaker)(nil)
	_ playback.Prompter    = (*Prompter)(nil)
)
