package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/matzehuels/labelpal/pkg/observability"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner animates a progress line while the pipeline runs. It implements
// observability.PipelineHooks: once attached, its message follows the run
// from loading layers through rendering.
type spinner struct {
	w       io.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	started bool
	once    sync.Once

	mu      sync.Mutex
	message string
	width   int
}

// newSpinner returns a spinner writing to w. It stops drawing when ctx is
// canceled.
func newSpinner(ctx context.Context, w io.Writer, message string) *spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &spinner{
		w:       w,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		message: message,
	}
}

// Start begins drawing. It must be called at most once.
func (s *spinner) Start() {
	s.started = true
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

// Stop ends the animation and clears the line. Extra calls do nothing.
func (s *spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		if s.started {
			<-s.stopped
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.width > 0 {
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
		}
	})
}

func (s *spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// frame, space, message
	s.width = max(s.width, utf8.RuneCountInString(s.message)+2)
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
}

// Message returns the text currently shown.
func (s *spinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *spinner) setMessage(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = fmt.Sprintf(format, args...)
}

// attach makes s the pipeline hooks until detach is called, which restores
// the hooks registered before.
func (s *spinner) attach() (detach func()) {
	prev := observability.Pipeline()
	observability.SetPipelineHooks(s)
	return func() { observability.SetPipelineHooks(prev) }
}

func (s *spinner) OnLoadStart(_ context.Context, layers int) {
	s.setMessage("Loading %s...", plural(layers, "layer"))
}

func (s *spinner) OnLoadComplete(_ context.Context, _, features int, _ time.Duration, err error) {
	if err == nil {
		s.setMessage("Placing labels for %s...", plural(features, "feature"))
	}
}

func (s *spinner) OnExtractComplete(_ context.Context, features, candidates, _ int, _ time.Duration, err error) {
	if err == nil && features > 0 {
		s.setMessage("Solving %s over %s...", plural(features, "feature"), plural(candidates, "candidate"))
	}
}

func (s *spinner) OnSolveComplete(_ context.Context, _ string, labels, _ int, _ time.Duration) {
	s.setMessage("Rendering %s...", plural(labels, "label"))
}

func (s *spinner) OnRenderComplete(context.Context, string, time.Duration, error) {}

var _ observability.PipelineHooks = (*spinner)(nil)
