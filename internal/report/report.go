package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/hochfrequenz/repo-migrator/internal/domain"
)

// Level classifies an event for presentation.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Event is one structured progress notification from a pipeline or the
// batch runner. Components emit events; how they are rendered is the
// reporter's business alone.
type Event struct {
	Repo    string
	State   domain.State
	Level   Level
	Message string
}

// Reporter receives progress events. Implementations must be safe for
// concurrent use; pipelines running in parallel share one reporter.
type Reporter interface {
	Publish(e Event)
}

// Nop discards all events. Used in tests and as a default.
type Nop struct{}

func (Nop) Publish(Event) {}

// Console renders events as styled lines on a writer.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	repoStyle    lipgloss.Style
	successStyle lipgloss.Style
	warnStyle    lipgloss.Style
	errorStyle   lipgloss.Style
}

// NewConsole creates a console reporter writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:          out,
		repoStyle:    lipgloss.NewStyle().Bold(true),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		warnStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

func (c *Console) Publish(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := e.Message
	switch e.Level {
	case LevelSuccess:
		msg = c.successStyle.Render(msg)
	case LevelWarning:
		msg = c.warnStyle.Render("warning: " + msg)
	case LevelError:
		msg = c.errorStyle.Render("error: " + msg)
	}

	if e.Repo != "" {
		fmt.Fprintf(c.out, "%s %s\n", c.repoStyle.Render("["+e.Repo+"]"), msg)
		return
	}
	fmt.Fprintln(c.out, msg)
}

// ContextSummary formats the assembled-context observability line.
func ContextSummary(files, totalTokens, maxTokens int) string {
	return fmt.Sprintf("context assembled: %d files, %s of %s tokens",
		files,
		humanize.Comma(int64(totalTokens)),
		humanize.Comma(int64(maxTokens)))
}

// BatchSummary formats the final aggregate line for a batch run.
func BatchSummary(completed, failed, skipped int, elapsed time.Duration) string {
	return fmt.Sprintf("batch done in %s: %d completed, %d failed, %d skipped",
		elapsed.Round(time.Second), completed, failed, skipped)
}
