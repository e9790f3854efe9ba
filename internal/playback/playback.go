// Package playback implements the client-side playback controller: it
// requests server audio for one article, plays it, and falls back to a local
// speech synthesizer when the server cannot deliver usable audio.
//
// At most one article is tracked as playing. Starting another supersedes the
// previous one immediately; the superseded attempt stops its local audio but
// any request it has in flight to the server is left to finish.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/newsbreeze/internal/apiclient"
)

// DefaultMinAudioBytes is the size server audio must exceed to be played.
const DefaultMinAudioBytes = 1000

var (
	// ErrSuperseded is returned by [Controller.Play] when another playback
	// started before this one finished.
	ErrSuperseded = errors.New("playback superseded")

	// ErrNoSpeaker is returned when a fallback is needed but no local
	// speech synthesizer is available.
	ErrNoSpeaker = errors.New("no local speech synthesizer available")
)

// State is a playback controller state.
type State int

const (
	Idle State = iota
	Requesting
	Playing
	FallbackOffered
	FallbackPlaying
	Failed
)

var stateNames = [...]string{"idle", "requesting", "playing", "fallback_offered", "fallback_playing", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// AudioSource fetches synthesized audio for a text.
type AudioSource interface {
	Audio(ctx context.Context, text string) ([]byte, error)
}

// AudioPlayer plays an audio payload and returns once playback has finished
// or ctx is cancelled.
type AudioPlayer interface {
	Play(ctx context.Context, audio []byte) error
}

// SpeechEventKind identifies a [SpeechEvent].
type SpeechEventKind int

const (
	SpeechStarted SpeechEventKind = iota
	SpeechEnded
	SpeechError
)

// SpeechEvent is emitted by a [Speaker] while it speaks.
type SpeechEvent struct {
	Kind SpeechEventKind
	Err  error
}

// Speaker is a local speech synthesizer. Speak starts speaking and returns a
// channel that receives Started, then Ended or Error, and is then closed.
type Speaker interface {
	Speak(ctx context.Context, text string) (<-chan SpeechEvent, error)
}

// Prompter asks the user whether to fall back to local speech.
type Prompter interface {
	ConfirmFallback(ctx context.Context, articleID, reason string) bool
}

// Transition describes one state change, for observers.
type Transition struct {
	ArticleID string
	State     State
	Reason    string
}

// Option is a functional option for a [Controller].
type Option func(*Controller)

// WithSpeaker sets the local speech synthesizer used for fallbacks.
func WithSpeaker(s Speaker) Option {
	return func(c *Controller) { c.speaker = s }
}

// WithPrompter sets who is asked before falling back. Without one, fallbacks
// happen only when auto-fallback is enabled.
func WithPrompter(p Prompter) Option {
	return func(c *Controller) { c.prompter = p }
}

// WithAutoFallback makes the controller fall back without asking.
func WithAutoFallback(on bool) Option {
	return func(c *Controller) { c.autoFallback = on }
}

// WithMinAudioBytes sets the exclusive lower bound on playable audio size.
func WithMinAudioBytes(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.minBytes = n
		}
	}
}

// WithObserver registers fn to be called on every state change. fn runs
// with the controller unlocked and must not block.
func WithObserver(fn func(Transition)) Option {
	return func(c *Controller) { c.observer = fn }
}

// Controller tracks the single article currently playing. It is safe for
// concurrent use.
type Controller struct {
	source       AudioSource
	player       AudioPlayer
	speaker      Speaker
	prompter     Prompter
	autoFallback bool
	minBytes     int
	observer     func(Transition)

	mu      sync.Mutex
	gen     uint64
	playing string
	state   State
	stop    context.CancelFunc
}

// NewController creates a Controller that fetches audio from source and plays
// it through player.
func NewController(source AudioSource, player AudioPlayer, opts ...Option) *Controller {
	c := &Controller{
		source:   source,
		player:   player,
		minBytes: DefaultMinAudioBytes,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// PlayingID returns the article currently playing, or "" when idle.
func (c *Controller) PlayingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop stops whatever is playing and returns to Idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.gen++
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	id := c.playing
	c.playing = ""
	c.state = Idle
	c.mu.Unlock()
	if id != "" {
		c.notify(Transition{ArticleID: id, State: Idle, Reason: "stopped"})
	}
}

// Play speaks text for articleID and blocks until playback ends. It returns
// [ErrSuperseded] if another Play or Stop takes over first.
//
// ctx bounds the request to the server. Local playback is additionally
// stopped when the attempt is superseded.
func (c *Controller) Play(ctx context.Context, articleID, text string) error {
	gen, playCtx := c.begin(ctx, articleID)

	audio, err := c.source.Audio(ctx, text)
	if !c.current(gen) {
		return ErrSuperseded
	}
	if err != nil {
		if ctx.Err() != nil {
			c.finish(gen, articleID, "cancelled")
			return ctx.Err()
		}
		if !fallbackWorthy(err) {
			c.fail(gen, articleID, err.Error())
			return err
		}
		return c.fallback(playCtx, gen, articleID, text, reasonOf(err))
	}
	if len(audio) <= c.minBytes {
		return c.fallback(playCtx, gen, articleID, text,
			fmt.Sprintf("the audio returned was too short (%d bytes)", len(audio)))
	}

	c.set(gen, articleID, Playing, "")
	err = c.player.Play(playCtx, audio)
	if !c.current(gen) {
		return ErrSuperseded
	}
	if err != nil {
		if ctx.Err() != nil {
			c.finish(gen, articleID, "cancelled")
			return ctx.Err()
		}
		slog.Warn("playback: audio player failed", "article", articleID, "error", err)
		return c.fallback(playCtx, gen, articleID, text, "the audio could not be played")
	}
	c.finish(gen, articleID, "")
	return nil
}

func (c *Controller) fallback(ctx context.Context, gen uint64, id, text, reason string) error {
	if c.speaker == nil {
		c.fail(gen, id, reason)
		return fmt.Errorf("playback: %s: %w", reason, ErrNoSpeaker)
	}

	if !c.autoFallback {
		c.set(gen, id, FallbackOffered, reason)
		ok := c.prompter != nil && c.prompter.ConfirmFallback(ctx, id, reason)
		if !c.current(gen) {
			return ErrSuperseded
		}
		if !ok {
			c.finish(gen, id, "fallback declined")
			return nil
		}
	}

	c.set(gen, id, FallbackPlaying, reason)
	events, err := c.speaker.Speak(ctx, text)
	if err != nil {
		c.fail(gen, id, err.Error())
		return fmt.Errorf("playback: local speech: %w", err)
	}

	var speakErr error
	for ev := range events {
		if ev.Kind == SpeechError {
			speakErr = ev.Err
		}
	}
	if !c.current(gen) {
		return ErrSuperseded
	}
	if speakErr != nil {
		c.fail(gen, id, speakErr.Error())
		return fmt.Errorf("playback: local speech: %w", speakErr)
	}
	c.finish(gen, id, "")
	return nil
}

// begin supersedes any previous playback and marks id as playing.
func (c *Controller) begin(ctx context.Context, id string) (uint64, context.Context) {
	playCtx, stop := context.WithCancel(ctx)

	c.mu.Lock()
	c.gen++
	gen := c.gen
	prev := c.stop
	c.stop = stop
	c.playing = id
	c.state = Requesting
	c.mu.Unlock()

	if prev != nil {
		prev()
	}
	c.notify(Transition{ArticleID: id, State: Requesting})
	return gen, playCtx
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

func (c *Controller) set(gen uint64, id string, s State, reason string) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
	c.notify(Transition{ArticleID: id, State: s, Reason: reason})
}

func (c *Controller) fail(gen uint64, id, reason string) {
	c.set(gen, id, Failed, reason)
	c.finish(gen, id, reason)
}

// finish returns to Idle if gen still owns the controller.
func (c *Controller) finish(gen uint64, id, reason string) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	c.playing = ""
	c.state = Idle
	c.mu.Unlock()
	c.notify(Transition{ArticleID: id, State: Idle, Reason: reason})
}

func (c *Controller) notify(t Transition) {
	if c.observer != nil {
		c.observer(t)
	}
}

// fallbackWorthy reports whether a server error should lead to local speech:
// explicit fallback requests and transport failures do, other API errors
// (such as invalid input) do not.
func fallbackWorthy(err error) bool {
	var ae *apiclient.APIError
	if errors.As(err, &ae) {
		return ae.Fallback
	}
	return true
}

func reasonOf(err error) string {
	var ae *apiclient.APIError
	if errors.As(err, &ae) {
		if ae.Message != "" {
			return ae.Message
		}
		if ae.Err != "" {
			return ae.Err
		}
	}
	return "could not reach the speech service"
}
