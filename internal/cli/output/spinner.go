package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a status line while a request is in flight.
// A disabled spinner prints nothing until it is stopped with a message.
type Spinner struct {
	w        io.Writer
	message  string
	interval time.Duration
	enabled  bool

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSpinner creates a spinner. Pass enabled=false when w is not a terminal.
func NewSpinner(w io.Writer, message string, enabled bool) *Spinner {
	return &Spinner{
		w:        w,
		message:  message,
		interval: 100 * time.Millisecond,
		enabled:  enabled,
		done:     make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	if !s.enabled {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.message)
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.halt()
	if s.enabled {
		fmt.Fprint(s.w, "\r\033[K")
	}
}

// Success stops the spinner with a success message.
func (s *Spinner) Success(message string) {
	s.finish("✓", message)
}

// Fail stops the spinner with a failure message.
func (s *Spinner) Fail(message string) {
	s.finish("✗", message)
}

func (s *Spinner) finish(mark, message string) {
	s.halt()
	if s.enabled {
		fmt.Fprint(s.w, "\r\033[K")
	}
	fmt.Fprintf(s.w, "%s %s\n", mark, message)
}

func (s *Spinner) halt() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}
