package playback

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeBinary installs an executable shell script called name that exits with
// code and puts only its directory on PATH.
func fakeBinary(t *testing.T, name, code string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\nexit " + code + "\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)
}

func TestNewSystemSpeaker_NoneInstalled(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := NewSystemSpeaker(); !errors.Is(err, ErrNoSpeaker) {
		t.Errorf("err = %v, want ErrNoSpeaker", err)
	}
}

func TestNewSystemPlayer_NoneInstalled(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := NewSystemPlayer(); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("err = %v, want ErrNoPlayer", err)
	}
}

func collect(ch <-chan SpeechEvent) []SpeechEvent {
	var out []SpeechEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestSystemSpeaker_Events(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("macOS prefers say")
	}
	fakeBinary(t, "espeak-ng", "0")
	s, err := NewSystemSpeaker()
	if err != nil {
		t.Fatalf("NewSystemSpeaker: %v", err)
	}
	if filepath.Base(s.Command()) != "espeak-ng" {
		t.Errorf("Command = %q", s.Command())
	}
	ch, err := s.Speak(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	evs := collect(ch)
	if len(evs) != 2 || evs[0].Kind != SpeechStarted || evs[1].Kind != SpeechEnded {
		t.Errorf("events = %+v, want started, ended", evs)
	}
}

func TestSystemSpeaker_EspeakArgs(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("macOS prefers say")
	}
	fakeBinary(t, "espeak-ng", "0")
	s, err := NewSystemSpeaker()
	if err != nil {
		t.Fatalf("NewSystemSpeaker: %v", err)
	}
	got := strings.Join(s.args("good morning"), " ")
	want := "-v en -s 158 -a 80 -- good morning"
	if got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestScaled(t *testing.T) {
	tests := []struct {
		base, factor float64
		want         string
	}{
		{200, 0.9, "180"},
		{175, 0.9, "158"},
		{100, 0.8, "80"},
		{100, 1, "100"},
	}
	for _, tt := range tests {
		if got := scaled(tt.base, tt.factor); got != tt.want {
			t.Errorf("scaled(%v, %v) = %q, want %q", tt.base, tt.factor, got, tt.want)
		}
	}
}

func TestSystemSpeaker_ErrorEvent(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("macOS prefers say")
	}
	fakeBinary(t, "espeak", "3")
	s, err := NewSystemSpeaker()
	if err != nil {
		t.Fatalf("NewSystemSpeaker: %v", err)
	}
	ch, err := s.Speak(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	evs := collect(ch)
	if len(evs) != 2 || evs[1].Kind != SpeechError || evs[1].Err == nil {
		t.Errorf("events = %+v, want started, error", evs)
	}
}

func TestSystemPlayer_Play(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("macOS prefers afplay")
	}
	fakeBinary(t, "aplay", "0")
	p, err := NewSystemPlayer()
	if err != nil {
		t.Fatalf("NewSystemPlayer: %v", err)
	}
	if err := p.Play(context.Background(), []byte("RIFF")); err != nil {
		t.Errorf("Play: %v", err)
	}
}
