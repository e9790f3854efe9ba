package playback

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// LinePrompter asks on Out and reads a y/N answer from In.
//
// A single goroutine owns In for the prompter's lifetime. A prompt abandoned
// through ctx leaves no reader behind, so the next line typed answers the
// next prompt.
type LinePrompter struct {
	In  io.Reader
	Out io.Writer

	once  sync.Once
	lines chan string
}

func (p *LinePrompter) start() {
	p.once.Do(func() {
		p.lines = make(chan string)
		go p.readLines()
	})
}

// readLines feeds p.lines until In is exhausted, then closes it.
func (p *LinePrompter) readLines() {
	r := bufio.NewReader(p.In)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			p.lines <- line
		}
		if err != nil {
			close(p.lines)
			return
		}
	}
}

// ConfirmFallback implements [Prompter]. Anything other than "y" or "yes"
// declines, as does a closed input.
func (p *LinePrompter) ConfirmFallback(ctx context.Context, articleID, reason string) bool {
	p.start()
	fmt.Fprintf(p.Out, "AI voice is unavailable for %s: %s\nUse the built-in system voice instead? [y/N] ", articleID, reason)

	select {
	case <-ctx.Done():
		return false
	case line, ok := <-p.lines:
		if !ok {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}
