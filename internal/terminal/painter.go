package terminal

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/victornm/equiz-client/internal/view"
)

// ScreenMsg carries a screen to the terminal program.
type ScreenMsg struct {
	Screen view.Screen
}

// Painter hands screens from the event loop to the terminal program. Paint
// never blocks; screens painted faster than the program draws are coalesced
// into the latest one.
type Painter struct {
	mu     sync.Mutex
	latest view.Screen
	ready  chan struct{}
}

func NewPainter() *Painter {
	return &Painter{ready: make(chan struct{}, 1)}
}

func (p *Painter) Paint(s view.Screen) {
	p.mu.Lock()
	p.latest = s
	p.mu.Unlock()

	select {
	case p.ready <- struct{}{}:
	default:
	}
}

// Next waits for the next painted screen. It yields nil once ctx is done.
func (p *Painter) Next(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-p.ready:
		case <-ctx.Done():
			return nil
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		return ScreenMsg{Screen: p.latest}
	}
}
