package dispatch_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/equiz-client/internal/answer"
	"github.com/victornm/equiz-client/internal/dispatch"
	"github.com/victornm/equiz-client/internal/domain"
	"github.com/victornm/equiz-client/internal/errors"
	"github.com/victornm/equiz-client/internal/event"
	"github.com/victornm/equiz-client/internal/session"
	"github.com/victornm/equiz-client/internal/transport"
	"github.com/victornm/equiz-client/internal/view"
)

func TestDispatcher_PushReceived(t *testing.T) {
	type outputs struct {
		screen view.Screen
		events *prometheus.CounterVec
	}

	tests := map[string]struct {
		arrange  func(r *view.Renderer)
		payloads []string
		assert   func(t *testing.T, out outputs)
	}{
		"open question": {
			payloads: []string{`{"Question":{"id":0,"total":3,"title":"Q1","question_type":"Open"}}`},
			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, "Q1", out.screen.Subtitle)
				assert.Equal(t, "1/3", out.screen.Progress)
				f, ok := out.screen.Form.(*answer.OpenForm)
				require.True(t, ok, "one text input should be rendered")
				assert.Equal(t, "Q1", f.Key())
				assert.Empty(t, f.Text())
				assert.Equal(t, 1.0, testutil.ToFloat64(out.events.WithLabelValues("question")))
			},
		},

		"lobby then ranking": {
			payloads: []string{
				`{"Lobby":{"users":["alice"]}}`,
				`{"Ranking":{"max_score":2,"scores":[["alice",1]]}}`,
			},
			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, view.SubtitleRanking, out.screen.Subtitle)
				require.NotNil(t, out.screen.Table)
				assert.Equal(t, [][]string{{"1.", "alice", "1/2"}}, out.screen.Table.Rows)
				assert.Equal(t, 1.0, testutil.ToFloat64(out.events.WithLabelValues("lobby")))
				assert.Equal(t, 1.0, testutil.ToFloat64(out.events.WithLabelValues("ranking")))
			},
		},

		"finished": {
			payloads: []string{`"Finished"`},
			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, view.SubtitleFinished, out.screen.Subtitle)
			},
		},

		"malformed payload with several tags routes to the highest priority": {
			payloads: []string{`{"Ranking":{"max_score":1,"scores":[]},"Lobby":{"users":["bob"]}}`},
			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, view.SubtitleLobby, out.screen.Subtitle)
			},
		},

		"unknown payload clears banners and image but keeps the screen": {
			arrange: func(r *view.Renderer) {
				r.Question(context.Background(), domain.Question{ID: 0, Total: 2, Title: "Q1", Image: "/q1.png", Type: domain.Open{}})
				r.Error("old error")
				r.Info("old info")
			},
			payloads: []string{`{"Closed":null}`},
			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, "Q1", out.screen.Subtitle)
				assert.Equal(t, "1/2", out.screen.Progress)
				assert.NotNil(t, out.screen.Form)
				assert.Empty(t, out.screen.Error)
				assert.Empty(t, out.screen.Info)
				assert.Empty(t, out.screen.Image)
				assert.Equal(t, 1.0, testutil.ToFloat64(out.events.WithLabelValues("unknown")))
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			eb := event.NewBus()
			r := view.NewRenderer(view.Config{})
			if tt.arrange != nil {
				tt.arrange(r)
			}

			d := dispatch.New(dispatch.Config{
				EventBus:   eb,
				Renderer:   r,
				Transport:  &fakeTransport{},
				Users:      session.NewMemoryStore(),
				Registerer: prometheus.NewRegistry(),
			})

			for _, p := range tt.payloads {
				eb.Publish(context.Background(), domain.EventPushReceived{Payload: []byte(p)})
			}
			eb.Stop()

			tt.assert(t, outputs{screen: r.Snapshot(), events: d.Events()})
		})
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	eb := event.NewBus()
	defer eb.Stop()

	d := dispatch.New(dispatch.Config{
		EventBus:  eb,
		Renderer:  view.NewRenderer(view.Config{}),
		Transport: &fakeTransport{},
		Users:     session.NewMemoryStore(),
	})

	err := d.Dispatch(context.Background(), []byte(`{"Nope":1}`))
	assert.Equal(t, errors.CodeInvalidPayload, errors.Convert(err).Code)
	assert.ErrorIs(t, err, domain.ErrUnknownEvent)

	assert.NoError(t, d.Dispatch(context.Background(), []byte(`"Finished"`)))
}

func TestDispatcher_PaintsOncePerPayload(t *testing.T) {
	tests := map[string]struct {
		payload string
		wantErr bool
	}{
		"known event":   {payload: `{"Lobby":{"users":["alice"]}}`},
		"unknown event": {payload: `{"Closed":null}`, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			eb := event.NewBus()
			defer eb.Stop()

			var painted int
			r := view.NewRenderer(view.Config{
				Painter: view.PainterFunc(func(view.Screen) { painted++ }),
			})
			r.Error("old error")
			painted = 0

			d := dispatch.New(dispatch.Config{
				EventBus:  eb,
				Renderer:  r,
				Transport: &fakeTransport{},
				Users:     session.NewMemoryStore(),
			})

			err := d.Dispatch(context.Background(), []byte(tt.payload))
			assert.Equal(t, tt.wantErr, err != nil)

			assert.Equal(t, 1, painted)
			assert.Empty(t, r.Snapshot().Error)
		})
	}
}

func TestDispatcher_FetchLatest(t *testing.T) {
	type (
		inputs struct {
			user     string
			response *transport.Response
		}

		outputs struct {
			requests []request
			screen   view.Screen
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"should replay the last event for the stored user": {
			arrange: func() inputs {
				return inputs{
					user:     "alice",
					response: &transport.Response{Status: http.StatusOK, Body: `{"Lobby":{"users":["alice","bob"]}}`},
				}
			},
			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.requests, 1)
				assert.Equal(t, request{method: http.MethodPost, path: transport.PathLastEvent, body: "alice"}, out.requests[0])
				assert.Equal(t, view.SubtitleLobby, out.screen.Subtitle)
			},
		},

		"should do nothing without a session": {
			arrange: func() inputs {
				return inputs{}
			},
			assert: func(t *testing.T, out outputs) {
				assert.Empty(t, out.requests)
				assert.Empty(t, out.screen.Subtitle)
			},
		},

		"should show the body of a rejected replay as error": {
			arrange: func() inputs {
				return inputs{
					user:     "mallory",
					response: &transport.Response{Status: http.StatusBadRequest, Body: "Unknown user"},
				}
			},
			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.requests, 1)
				assert.Equal(t, "Unknown user", out.screen.Error)
			},
		},

		"should log a null last event without changing the screen": {
			arrange: func() inputs {
				return inputs{
					user:     "alice",
					response: &transport.Response{Status: http.StatusOK, Body: `null`},
				}
			},
			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.requests, 1)
				assert.Empty(t, out.screen.Subtitle)
				assert.Empty(t, out.screen.Error)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			ctx := context.Background()

			users := session.NewMemoryStore()
			if in.user != "" {
				require.NoError(t, users.Set(ctx, in.user))
			}

			eb := event.NewBus()
			r := view.NewRenderer(view.Config{})
			tr := &fakeTransport{response: in.response}

			d := dispatch.New(dispatch.Config{
				EventBus:  eb,
				Renderer:  r,
				Transport: tr,
				Users:     users,
			})

			d.FetchLatest(ctx)
			eb.Stop()

			tt.assert(t, outputs{requests: tr.requests, screen: r.Snapshot()})
		})
	}
}

type request struct {
	method string
	path   string
	body   string
}

type fakeTransport struct {
	mu       sync.Mutex
	requests []request
	response *transport.Response
}

func (f *fakeTransport) Request(_ context.Context, method, path string, body []byte) (*transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, request{method: method, path: path, body: string(body)})
	return f.response, nil
}
