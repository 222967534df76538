package dispatch

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/victornm/equiz-client/internal/domain"
	"github.com/victornm/equiz-client/internal/errors"
	"github.com/victornm/equiz-client/internal/event"
	"github.com/victornm/equiz-client/internal/transport"
)

type Renderer interface {
	ClearTransient()
	Render(ctx context.Context, ev domain.ServerEvent)
	Error(msg string)
	Repaint()
}

type Transport interface {
	Request(ctx context.Context, method, path string, body []byte) (*transport.Response, error)
}

type Users interface {
	Get(ctx context.Context) (string, bool, error)
}

type Config struct {
	EventBus  *event.Bus
	Renderer  Renderer
	Transport Transport
	Users     Users
	// Registerer receives the dispatcher metrics. Nil skips registration.
	Registerer prometheus.Registerer
}

// Dispatcher turns pushed payloads into screens.
type Dispatcher struct {
	eb        *event.Bus
	renderer  Renderer
	transport Transport
	users     Users
	events    *prometheus.CounterVec
}

func New(c Config) *Dispatcher {
	d := &Dispatcher{
		eb:        c.EventBus,
		renderer:  c.Renderer,
		transport: c.Transport,
		users:     c.Users,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "equiz_client",
			Name:      "events_total",
			Help:      "Server events dispatched, by kind.",
		}, []string{"kind"}),
	}

	if c.Registerer != nil {
		c.Registerer.MustRegister(d.events)
	}

	d.eb.Subscribe(domain.EventNamePushReceived, func(ctx context.Context, e event.Event) error {
		return d.Dispatch(ctx, e.(domain.EventPushReceived).Payload)
	})

	d.eb.Subscribe(domain.EventNamePushFailed, func(ctx context.Context, e event.Event) error {
		slog.ErrorContext(ctx, "dispatch: push channel failed", "error", e.(domain.EventPushFailed).Err)
		return nil
	})

	return d
}

// Events exposes the dispatch counter, labelled by kind.
func (d *Dispatcher) Events() *prometheus.CounterVec {
	return d.events
}

// Dispatch clears the banners and the image, then renders the payload. A
// payload that is not a known event leaves the rest of the screen as it is
// and is returned as an invalid payload error. The screen is painted once.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte) error {
	d.renderer.ClearTransient()

	ev, err := domain.DecodeServerEvent(payload)
	if err != nil {
		d.events.WithLabelValues("unknown").Inc()
		d.renderer.Repaint()
		return errors.New(errors.CodeInvalidPayload,
			errors.WithMessagef("unknown event %s", payload),
			errors.WithCause(err),
		)
	}

	d.events.WithLabelValues(kind(ev)).Inc()
	slog.DebugContext(ctx, "dispatch: received event", "kind", kind(ev))
	d.renderer.Render(ctx, ev)

	return nil
}

// FetchLatest replays the last event the server pushed. It does nothing without a session.
func (d *Dispatcher) FetchLatest(ctx context.Context) {
	d.eb.Go(ctx, func(ctx context.Context) func() {
		user, ok, err := d.users.Get(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "dispatch: read username failed", "error", err)
			return nil
		}
		if !ok {
			return nil
		}

		resp, err := d.transport.Request(ctx, http.MethodPost, transport.PathLastEvent, []byte(user))
		if err != nil {
			slog.ErrorContext(ctx, "dispatch: fetch last event failed", "error", err)
			return func() { d.renderer.Error(errors.Convert(err).Message) }
		}

		return func() {
			if resp.Status != http.StatusOK {
				d.renderer.Error(resp.Body)
				return
			}

			if err := d.Dispatch(ctx, []byte(resp.Body)); err != nil {
				slog.WarnContext(ctx, "dispatch: replay last event failed", "error", err)
			}
		}
	})
}

func kind(ev domain.ServerEvent) string {
	switch ev.(type) {
	case domain.Lobby:
		return "lobby"
	case domain.Question:
		return "question"
	case domain.Ranking:
		return "ranking"
	case domain.Finished:
		return "finished"
	default:
		return "unknown"
	}
}
