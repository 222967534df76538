package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/equiz-client/internal/answer"
	"github.com/victornm/equiz-client/internal/dispatch"
	"github.com/victornm/equiz-client/internal/domain"
	"github.com/victornm/equiz-client/internal/event"
	"github.com/victornm/equiz-client/internal/session"
	"github.com/victornm/equiz-client/internal/telemetry"
	"github.com/victornm/equiz-client/internal/terminal"
	"github.com/victornm/equiz-client/internal/transport"
	"github.com/victornm/equiz-client/internal/view"
)

const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

type Config struct {
	Server struct {
		URL string
	}

	Store struct {
		Kind string
		// Dir holds the username file. Empty means ~/.equiz.
		Dir string

		Redis struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Debug struct {
		// Port serves /metrics and /debug/pprof. Zero disables the listener.
		Port int32
	}

	Log telemetry.LogConfig
}

// DefaultConfig is overridden by the config file and the environment.
func DefaultConfig() Config {
	var c Config
	c.Server.URL = "http://localhost:8000"
	c.Store.Kind = StoreFile
	c.Store.Redis.Prefix = "equiz"
	c.Log.Level = "info"
	return c
}

// IO is the terminal the client draws on and reads commands from.
type IO struct {
	In  io.Reader
	Out io.Writer
	// AltScreen draws on the alternate screen buffer, restoring the shell on exit.
	AltScreen bool
}

type App struct {
	c Config

	eb *event.Bus

	infra struct {
		redis redis.UniversalClient
	}

	store      session.Store
	transport  *transport.Client
	renderer   *view.Renderer
	collector  *answer.Collector
	dispatcher *dispatch.Dispatcher
	session    *session.Service
	painter    *terminal.Painter
	tio        IO

	registry *prometheus.Registry
	http     *http.Server
}

func Init(c Config, tio IO) (*App, error) {
	a := &App{c: c}

	a.eb = event.NewBus()

	if err := a.initStore(); err != nil {
		a.eb.Stop()
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	a.initClient(tio)
	a.initDebug()
	return a, nil
}

func (a *App) initStore() error {
	switch a.c.Store.Kind {
	case StoreMemory:
		a.store = session.NewMemoryStore()

	case StoreFile, "":
		dir := a.c.Store.Dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("file: %w", err)
			}
			dir = filepath.Join(home, ".equiz")
		}

		s, err := session.NewFileStore(dir)
		if err != nil {
			return fmt.Errorf("file: %w", err)
		}
		a.store = s

	case StoreRedis:
		r, err := connectRedis(a.c.Store.Redis.Addrs, a.c.Store.Redis.Pass)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		a.infra.redis = r
		a.store = session.NewRedisStore(r, a.c.Store.Redis.Prefix)

	default:
		return fmt.Errorf("unknown store kind %q", a.c.Store.Kind)
	}

	return nil
}

func connectRedis(addrs []string, pass string) (redis.UniversalClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    addrs,
		Password: pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return nil, err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return r, nil
}

func (a *App) initClient(tio IO) {
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.transport = transport.NewClient(transport.Config{BaseURL: a.c.Server.URL})

	a.tio = tio
	a.painter = terminal.NewPainter()
	a.renderer = view.NewRenderer(view.Config{
		Painter: a.painter,
	})

	a.dispatcher = dispatch.New(dispatch.Config{
		EventBus:   a.eb,
		Renderer:   a.renderer,
		Transport:  a.transport,
		Users:      a.store,
		Registerer: a.registry,
	})

	a.collector = answer.NewCollector(answer.Config{
		EventBus:  a.eb,
		Transport: a.transport,
		Users:     a.store,
		View:      a.renderer,
	})

	a.session = session.NewService(session.Config{
		EventBus:  a.eb,
		Store:     a.store,
		Transport: a.transport,
		View:      a.renderer,
		Replayer:  a.dispatcher,
	})

	a.eb.Subscribe(domain.EventNameCommandReceived, a.handleCommand)
}

func (a *App) initDebug() {
	if a.c.Debug.Port <= 0 {
		return
	}

	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	a.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.c.Debug.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Run fetches the quiz title, restores the session and serves commands until
// "quit" is typed or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.fetchTitle(ctx)
	a.eb.Publish(ctx, domain.EventStarted{})

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer cancel()
		return terminal.Run(ctx, terminal.Config{
			EventBus:  a.eb,
			Painter:   a.painter,
			In:        a.tio.In,
			Out:       a.tio.Out,
			AltScreen: a.tio.AltScreen,
		})
	})

	if a.http != nil {
		eg.Go(func() error {
			slog.InfoContext(ctx, fmt.Sprintf("app: debug HTTP listening on port %d", a.c.Debug.Port))
			if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		eg.Go(func() error {
			<-ctx.Done()

			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			return a.http.Shutdown(sctx)
		})
	}

	return eg.Wait()
}

func (a *App) fetchTitle(ctx context.Context) {
	a.eb.Go(ctx, func(ctx context.Context) func() {
		resp, err := a.transport.Request(ctx, http.MethodGet, transport.PathTitle, nil)
		if err == nil {
			err = resp.Expect(http.StatusOK)
		}
		if err != nil {
			slog.WarnContext(ctx, "app: fetch title failed", "error", err)
			return nil
		}

		return func() { a.renderer.SetTitle(resp.Body) }
	})
}

// Shutdown waits for in-flight requests, then closes the push channel and the store connection.
func (a *App) Shutdown() {
	ctx := context.Background()

	a.eb.Stop()
	a.session.Close()

	if a.infra.redis != nil {
		if err := a.infra.redis.Close(); err != nil {
			slog.ErrorContext(ctx, "app: close redis failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "app: shutdown completed")
}
