package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/victornm/equiz-client/internal/domain"
	"github.com/victornm/equiz-client/internal/event"
	"github.com/victornm/equiz-client/internal/view"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	inputLines    = 1
)

// Model draws the latest screen in a viewport above a command line. It holds
// no quiz state: commands go to the event bus, screens come back from the Painter.
type Model struct {
	ctx     context.Context
	eb      *event.Bus
	painter *Painter

	screen   view.Screen
	viewport viewport.Model
	input    textinput.Model
}

func NewModel(ctx context.Context, eb *event.Bus, p *Painter) *Model {
	in := textinput.New()
	in.Prompt = "equiz> "
	in.Placeholder = "type help"
	in.Focus()

	return &Model{
		ctx:      ctx,
		eb:       eb,
		painter:  p,
		viewport: viewport.New(defaultWidth, defaultHeight-inputLines),
		input:    in,
	}
}

func (m *Model) Init() tea.Cmd {
	return m.painter.Next(m.ctx)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ScreenMsg:
		m.screen = msg.Screen
		m.viewport.SetContent(Frame(m.screen))
		return m, m.painter.Next(m.ctx)

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-inputLines)
		m.input.Width = max(1, msg.Width-len(m.input.Prompt)-1)
		m.viewport.SetContent(Frame(m.screen))
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter, tea.KeyCtrlJ:
			return m, m.submit()
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) View() string {
	return m.viewport.View() + "\n" + m.input.View()
}

// submit posts the typed command onto the event bus and clears the line.
func (m *Model) submit() tea.Cmd {
	line := m.input.Value()
	m.input.Reset()

	cmd, ok := Parse(line)
	if !ok {
		return nil
	}
	if cmd.Verb == VerbQuit {
		return tea.Quit
	}

	m.eb.Publish(m.ctx, domain.EventCommandReceived{Command: cmd})
	return nil
}

type Config struct {
	EventBus  *event.Bus
	Painter   *Painter
	In        io.Reader
	Out       io.Writer
	AltScreen bool
}

// Run blocks until "quit" or ctrl+c is typed, or ctx is done.
func Run(ctx context.Context, c Config) error {
	opts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithInput(c.In),
		tea.WithOutput(c.Out),
	}
	if c.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}

	p := tea.NewProgram(NewModel(ctx, c.EventBus, c.Painter), opts...)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal: %w", err)
	}

	return nil
}
