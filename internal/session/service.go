package session

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/victornm/equiz-client/internal/domain"
	"github.com/victornm/equiz-client/internal/errors"
	"github.com/victornm/equiz-client/internal/event"
	"github.com/victornm/equiz-client/internal/transport"
)

type Transport interface {
	Request(ctx context.Context, method, path string, body []byte) (*transport.Response, error)
	Subscribe(ctx context.Context, onMessage func(payload []byte), onError func(err error)) *transport.Subscription
}

type View interface {
	SetUser(name string)
	ShowLogin()
	HideLogin()
	Error(msg string)
	Clear()
}

// Replayer replays the last server event once a session is established.
type Replayer interface {
	FetchLatest(ctx context.Context)
}

type Config struct {
	EventBus  *event.Bus
	Store     Store
	Transport Transport
	View      View
	Replayer  Replayer
}

// Service logs the user in and keeps exactly one push subscription alive for
// the session. Its methods must be called from the event loop.
type Service struct {
	eb        *event.Bus
	store     Store
	transport Transport
	view      View
	replayer  Replayer

	// pending is set while a login or relogin request is in flight.
	pending bool
	// gen changes on logout. An attempt started under an older gen is discarded.
	gen       uint64
	sub       *transport.Subscription
	cancelSub context.CancelFunc
}

func NewService(c Config) *Service {
	s := &Service{
		eb:        c.EventBus,
		store:     c.Store,
		transport: c.Transport,
		view:      c.View,
		replayer:  c.Replayer,
	}

	s.eb.Subscribe(domain.EventNameStarted, func(ctx context.Context, _ event.Event) error {
		s.Relogin(ctx)
		return nil
	})

	return s
}

// Relogin restores the session of the stored username. Without a stored
// username, or when the server does not know it, the login form is shown.
func (s *Service) Relogin(ctx context.Context) {
	gen, ok := s.begin(ctx, "relogin")
	if !ok {
		return
	}

	s.eb.Go(ctx, func(ctx context.Context) func() {
		user, ok, err := s.store.Get(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "session: read username failed", "error", err)
			return s.fail(gen, s.view.ShowLogin)
		}
		if !ok {
			return s.fail(gen, s.view.ShowLogin)
		}

		resp, err := s.transport.Request(ctx, http.MethodPost, transport.PathRelogin, []byte(user))
		if err != nil {
			slog.ErrorContext(ctx, "session: relogin failed", "user", user, "error", err)
			return s.fail(gen, s.view.ShowLogin)
		}
		if resp.Status != http.StatusAccepted {
			slog.InfoContext(ctx, "session: relogin rejected", "user", user, "status", resp.Status, "body", resp.Body)
			return s.fail(gen, s.view.ShowLogin)
		}

		return s.establish(ctx, gen, resp.Body)
	})
}

// Login asks the server for the given username. The server may answer with a
// different canonical name, which becomes the session's username.
func (s *Service) Login(ctx context.Context, username string) {
	if strings.TrimSpace(username) == "" {
		return
	}

	gen, ok := s.begin(ctx, "login")
	if !ok {
		return
	}

	s.eb.Go(ctx, func(ctx context.Context) func() {
		resp, err := s.transport.Request(ctx, http.MethodPost, transport.PathLogin, []byte(username))
		if err != nil {
			slog.ErrorContext(ctx, "session: login failed", "user", username, "error", err)
			return s.fail(gen, func() { s.view.Error(errors.Convert(err).Message) })
		}
		if resp.Status != http.StatusAccepted {
			return s.fail(gen, func() { s.view.Error(resp.Body) })
		}

		slog.InfoContext(ctx, "session: logged in", "user", resp.Body)
		return s.establish(ctx, gen, resp.Body)
	})
}

// Logout clears the stored username and closes the push channel. A login
// still in flight is discarded when it completes.
func (s *Service) Logout(ctx context.Context) {
	s.gen++
	s.closeSubscription()

	s.eb.Go(ctx, func(ctx context.Context) func() {
		err := s.store.Clear(ctx)
		return func() {
			if err != nil {
				slog.ErrorContext(ctx, "session: clear username failed", "error", err)
				s.view.Error(errors.Convert(err).Message)
			}
			s.view.SetUser("")
			s.view.Clear()
			s.view.ShowLogin()
		}
	})
}

// Close stops error reporting on the push channel, then closes it.
func (s *Service) Close() {
	s.closeSubscription()
}

// begin starts a login attempt and returns the generation it belongs to.
func (s *Service) begin(ctx context.Context, op string) (uint64, bool) {
	if s.pending {
		slog.DebugContext(ctx, "session: request already in flight, ignored", "op", op)
		return 0, false
	}

	s.pending = true
	return s.gen, true
}

// fail returns a completion that ends the in-flight request and runs show,
// unless a logout happened meanwhile.
func (s *Service) fail(gen uint64, show func()) func() {
	return func() {
		s.pending = false
		if gen != s.gen {
			return
		}
		show()
	}
}

// establish persists the canonical username off the loop and returns the
// completion that opens the push channel and updates the screen.
func (s *Service) establish(ctx context.Context, gen uint64, username string) func() {
	if err := s.store.Set(ctx, username); err != nil {
		slog.ErrorContext(ctx, "session: persist username failed", "user", username, "error", err)
	}

	return func() {
		if gen != s.gen {
			s.discard(ctx, username)
			return
		}

		s.pending = false
		s.subscribe(ctx)
		s.view.SetUser(username)
		s.view.HideLogin()
		s.replayer.FetchLatest(ctx)
	}
}

// discard undoes the username persisted by an attempt that a logout
// overtook. The guard stays up until the slot is cleared again.
func (s *Service) discard(ctx context.Context, username string) {
	slog.InfoContext(ctx, "session: login discarded after logout", "user", username)

	s.eb.Go(ctx, func(ctx context.Context) func() {
		if err := s.store.Clear(ctx); err != nil {
			slog.ErrorContext(ctx, "session: clear username failed", "error", err)
		}
		return func() { s.pending = false }
	})
}

func (s *Service) subscribe(ctx context.Context) {
	s.closeSubscription()

	// Cancelled before the subscription closes, so a reader blocked on a
	// full event queue gives up and Close can return.
	ctx, cancel := context.WithCancel(ctx)
	s.cancelSub = cancel
	s.sub = s.transport.Subscribe(ctx,
		func(payload []byte) {
			s.eb.Publish(ctx, domain.EventPushReceived{Payload: payload})
		},
		func(err error) {
			s.eb.Publish(ctx, domain.EventPushFailed{Err: err})
		},
	)
}

func (s *Service) closeSubscription() {
	if s.sub == nil {
		return
	}

	s.sub.DisableErrors()
	s.cancelSub()
	s.sub.Close()
	s.sub = nil
	s.cancelSub = nil
}
