package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/victornm/equiz-client/internal/domain"
	"github.com/victornm/equiz-client/internal/event"
	"github.com/victornm/equiz-client/internal/terminal"
)

// handleCommand runs on the event loop for every command typed by the user.
func (a *App) handleCommand(ctx context.Context, e event.Event) error {
	cmd := e.(domain.EventCommandReceived).Command

	var err error
	switch cmd.Verb {
	case terminal.VerbLogin:
		a.session.Login(ctx, cmd.Arg)
	case terminal.VerbLogout:
		a.session.Logout(ctx)
	case terminal.VerbChoose:
		err = withOption(cmd.Arg, a.collector.Choose)
	case terminal.VerbToggle:
		err = withOption(cmd.Arg, a.collector.Toggle)
	case terminal.VerbAnswer:
		err = a.collector.Write(cmd.Arg)
	case terminal.VerbSubmit:
		a.collector.Submit(ctx)
	case terminal.VerbHelp:
		a.renderer.Info(terminal.Help)
	default:
		err = fmt.Errorf("unknown command %q, type help", cmd.Verb)
	}

	if err != nil {
		a.renderer.Error(err.Error())
	}

	return nil
}

// withOption calls f with the 0-based index of a 1-based option number.
func withOption(arg string, f func(i int) error) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("option must be a number, got %q", arg)
	}

	return f(n - 1)
}
