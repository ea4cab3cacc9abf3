package main

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// Spinner shows progress on stderr while the API calls run, so it never
// mixes with report output on stdout.
type Spinner struct {
	message  string
	mu       sync.Mutex
	active   bool
	stopped  bool
	done     chan struct{}
	stopOnce sync.Once
}

func NewSpinner(message string) *Spinner {
	return &Spinner{message: message, done: make(chan struct{})}
}

func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active || s.stopped {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.mu.Unlock()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-s.done:
			fmt.Fprintf(os.Stderr, "\r%s\r", spaces(len(s.message)+2))
			return
		case <-ticker.C:
			fmt.Fprintf(os.Stderr, "\r%s %s", spinnerFrames[frame%len(spinnerFrames)], s.message)
			frame++
		}
	}
}

// Stop always closes done, even when Start has not been scheduled yet, so a
// late-starting goroutine exits instead of spinning forever.
func (s *Spinner) Stop() {
	s.mu.Lock()
	s.active = false
	s.stopped = true
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.done) })
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
