package answer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/victornm/equiz-client/internal/domain"
	"github.com/victornm/equiz-client/internal/errors"
	"github.com/victornm/equiz-client/internal/event"
	"github.com/victornm/equiz-client/internal/transport"
)

// View is the part of the screen the collector works on.
type View interface {
	// Form is the form of the question on screen, nil on any other screen.
	Form() Form
	Error(msg string)
	Info(msg string)
	Repaint()
}

type Transport interface {
	PostJSON(ctx context.Context, path string, v any) (*transport.Response, error)
}

type Users interface {
	Get(ctx context.Context) (string, bool, error)
}

type Config struct {
	EventBus  *event.Bus
	Transport Transport
	Users     Users
	View      View
}

// Collector drives the form on screen and submits its answer.
type Collector struct {
	eb        *event.Bus
	transport Transport
	users     Users
	view      View
}

func NewCollector(c Config) *Collector {
	return &Collector{
		eb:        c.EventBus,
		transport: c.Transport,
		users:     c.Users,
		view:      c.View,
	}
}

func (c *Collector) Choose(i int) error {
	f, ok := c.view.Form().(*ChoiceForm)
	if !ok {
		return fmt.Errorf("%w: choose", ErrNoSuchControl)
	}

	if err := f.Choose(i); err != nil {
		return err
	}

	c.view.Repaint()
	return nil
}

func (c *Collector) Toggle(i int) error {
	f, ok := c.view.Form().(*OptionForm)
	if !ok {
		return fmt.Errorf("%w: toggle", ErrNoSuchControl)
	}

	if err := f.Toggle(i); err != nil {
		return err
	}

	c.view.Repaint()
	return nil
}

func (c *Collector) Write(text string) error {
	f, ok := c.view.Form().(*OpenForm)
	if !ok {
		return fmt.Errorf("%w: answer", ErrNoSuchControl)
	}

	f.Write(text)
	c.view.Repaint()
	return nil
}

// Submit posts the answer entered in the form on screen. It does nothing when
// there is no form or nothing submittable is entered. Controls stay usable and
// the same question may be answered again.
func (c *Collector) Submit(ctx context.Context) bool {
	f := c.view.Form()
	if f == nil {
		return false
	}

	v, ok := f.Answer()
	if !ok {
		return false
	}

	title := f.Question()
	c.eb.Go(ctx, func(ctx context.Context) func() {
		return c.submit(ctx, title, v)
	})

	return true
}

func (c *Collector) submit(ctx context.Context, title string, v domain.AnswerValue) func() {
	user, ok, err := c.users.Get(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "answer: read username failed", "error", err)
		return func() { c.view.Error(errors.Convert(err).Message) }
	}
	if !ok {
		slog.WarnContext(ctx, "answer: answer dropped", "question", title, "error", errors.New(errors.CodeUnauthenticated))
		return nil
	}

	resp, err := c.transport.PostJSON(ctx, transport.PathSubmitAnswer, domain.Answer{
		User:     user,
		Question: title,
		Answer:   v,
	})
	if err != nil {
		slog.ErrorContext(ctx, "answer: submit failed", "question", title, "error", err)
		return func() { c.view.Error(errors.Convert(err).Message) }
	}

	return func() {
		if resp.Status == http.StatusAccepted {
			c.view.Info("Submitted answer: " + resp.Body)
			return
		}

		slog.InfoContext(ctx, "answer: rejected", "question", title, "status", resp.Status, "body", resp.Body)
		c.view.Error(resp.Body)
	}
}
