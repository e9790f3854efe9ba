package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// Local speech settings: slightly slower than normal and a little quieter.
var (
	speechRate   = 0.9
	speechVolume = 0.8
)

// scaled returns base*factor rounded to the nearest integer, as a flag value.
func scaled(base, factor float64) string {
	return strconv.Itoa(int(math.Round(base * factor)))
}

// SystemSpeaker speaks through the platform's command-line synthesizer:
// say on macOS, espeak-ng or espeak elsewhere.
type SystemSpeaker struct {
	path string
	args func(text string) []string
}

// NewSystemSpeaker finds a local synthesizer. It returns [ErrNoSpeaker] when
// none is installed.
func NewSystemSpeaker() (*SystemSpeaker, error) {
	if runtime.GOOS == "darwin" {
		if p, err := exec.LookPath("say"); err == nil {
			wpm := scaled(200, speechRate)
			return &SystemSpeaker{path: p, args: func(text string) []string {
				return []string{"-r", wpm, "--", text}
			}}, nil
		}
	}
	for _, name := range []string{"espeak-ng", "espeak"} {
		if p, err := exec.LookPath(name); err == nil {
			wpm := scaled(175, speechRate)
			amp := scaled(100, speechVolume)
			return &SystemSpeaker{path: p, args: func(text string) []string {
				return []string{"-v", "en", "-s", wpm, "-a", amp, "--", text}
			}}, nil
		}
	}
	return nil, ErrNoSpeaker
}

// Command returns the synthesizer binary in use.
func (s *SystemSpeaker) Command() string { return s.path }

// Speak implements [Speaker]. Cancelling ctx kills the synthesizer.
func (s *SystemSpeaker) Speak(ctx context.Context, text string) (<-chan SpeechEvent, error) {
	cmd := exec.CommandContext(ctx, s.path, s.args(text)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("playback: start %s: %w", s.path, err)
	}

	events := make(chan SpeechEvent, 2)
	events <- SpeechEvent{Kind: SpeechStarted}
	go func() {
		defer close(events)
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			events <- SpeechEvent{Kind: SpeechError, Err: err}
			return
		}
		events <- SpeechEvent{Kind: SpeechEnded}
	}()
	return events, nil
}

// SystemPlayer plays WAV audio through afplay, aplay, or ffplay.
type SystemPlayer struct {
	path string
	args []string
}

// ErrNoPlayer is returned when no command-line audio player is installed.
var ErrNoPlayer = errors.New("no audio player available")

// NewSystemPlayer finds a local audio player. It returns [ErrNoPlayer] when
// none is installed.
func NewSystemPlayer() (*SystemPlayer, error) {
	candidates := []struct {
		name string
		args []string
	}{
		{"afplay", nil},
		{"aplay", []string{"-q"}},
		{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c.name); err == nil {
			return &SystemPlayer{path: p, args: c.args}, nil
		}
	}
	return nil, ErrNoPlayer
}

// Command returns the player binary in use.
func (p *SystemPlayer) Command() string { return p.path }

// Play implements [AudioPlayer]. The audio is written to a temporary file
// that is removed once playback ends.
func (p *SystemPlayer) Play(ctx context.Context, audio []byte) error {
	f, err := os.CreateTemp("", "newsbreeze-*.wav")
	if err != nil {
		return fmt.Errorf("playback: create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return fmt.Errorf("playback: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("playback: close temp file: %w", err)
	}

	args := append(append([]string{}, p.args...), f.Name())
	if err := exec.CommandContext(ctx, p.path, args...).Run(); err != nil {
		return fmt.Errorf("playback: %s: %w", p.path, err)
	}
	return nil
}
