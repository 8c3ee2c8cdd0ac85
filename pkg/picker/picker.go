// Package picker is the interactive batch list: the user moves through the
// normalized links and fetches one at a time until an image is acquired.
package picker

import (
	"context"
	"defectlens/pkg/acquire"
	"defectlens/pkg/artifact"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user leaves the picker without an image.
var ErrCancelled = errors.New("batch selection cancelled")

var (
	styleCursor = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	styleReady  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleFailed = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleDim    = lipgloss.NewStyle().Faint(true)
)

type fetchedMsg struct {
	index int
	img   *artifact.Image
	err   error
}

// Model is the bubbletea model. Item state lives in the batch; the model
// only tracks the cursor and the final image.
type Model struct {
	ctx     context.Context
	orch    *acquire.Orchestrator
	batch   *acquire.Batch
	cursor  int
	spinner spinner.Model
	result  *artifact.Image
	done    bool
}

func New(ctx context.Context, orch *acquire.Orchestrator, batch *acquire.Batch) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{ctx: ctx, orch: orch, batch: batch, spinner: s}
}

// Result is the acquired image, or nil.
func (m Model) Result() *artifact.Image {
	return m.result
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < m.batch.Len()-1 {
				m.cursor++
			}
		case "enter", " ":
			return m, m.fetch(m.cursor)
		case "q", "esc", "ctrl+c":
			m.done = true
			m.orch.CloseBatch()
			return m, tea.Quit
		}
		return m, nil

	case fetchedMsg:
		if msg.err == nil {
			m.result = msg.img
			m.done = true
			return m, tea.Quit
		}
		// failures are recorded on the item and rendered from there
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) fetch(i int) tea.Cmd {
	fut := m.orch.FetchBatchItem(m.ctx, i)
	return func() tea.Msg {
		img, err := fut.Wait(m.ctx)
		return fetchedMsg{index: i, img: img, err: err}
	}
}

func (m Model) View() string {
	if m.done {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(styleDim.Render("↑/↓ move · enter fetch · q quit") + "\n\n")
	for i, it := range m.batch.Items() {
		cursor := "  "
		if i == m.cursor {
			cursor = styleCursor.Render("> ")
		}
		fmt.Fprintf(&sb, "%s%s %s %s\n", cursor, m.statusIcon(it.Status), it.Link.SuggestedName, styleDim.Render(it.Link.OriginalURL))
		if it.Status == acquire.StatusFailed && it.Err != nil {
			for _, line := range strings.Split(it.Err.Full(), "\n") {
				sb.WriteString("     " + styleFailed.Render(line) + "\n")
			}
		}
	}
	return sb.String()
}

func (m Model) statusIcon(s acquire.Status) string {
	switch s {
	case acquire.StatusLoading:
		return m.spinner.View()
	case acquire.StatusReady:
		return styleReady.Render("✓")
	case acquire.StatusFailed:
		return styleFailed.Render("✗")
	default:
		return "·"
	}
}

// Run shows the picker until an item is acquired or the user quits.
func Run(ctx context.Context, orch *acquire.Orchestrator, batch *acquire.Batch, in io.Reader, out io.Writer) (*artifact.Image, error) {
	p := tea.NewProgram(New(ctx, orch, batch), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("batch picker: %w", err)
	}
	if img := final.(Model).Result(); img != nil {
		return img, nil
	}
	return nil, ErrCancelled
}
