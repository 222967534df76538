package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/equiz-client/internal/errors"
	"github.com/victornm/equiz-client/internal/transport"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestClient_Request(t *testing.T) {
	var (
		gotBody      string
		gotRequestID string
	)

	e := gin.New()
	e.POST(transport.PathLogin, func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		gotBody = string(b)
		gotRequestID = c.GetHeader("X-Request-Id")
		c.String(http.StatusAccepted, "alice_1")
	})
	e.POST(transport.PathRelogin, func(c *gin.Context) {
		c.String(http.StatusBadRequest, "Could not relogin")
	})

	c := makeClient(t, e)

	resp, err := c.Request(context.Background(), http.MethodPost, transport.PathLogin, []byte("alice"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.Status)
	assert.Equal(t, "alice_1", resp.Body)
	assert.Equal(t, "alice", gotBody)
	assert.NotEmpty(t, gotRequestID)
	assert.NoError(t, resp.Expect(http.StatusAccepted))

	resp, err = c.Request(context.Background(), http.MethodPost, transport.PathRelogin, []byte("alice"))
	require.NoError(t, err, "a non-success status is not a transport error")
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	rejected := errors.Convert(resp.Expect(http.StatusAccepted))
	assert.Equal(t, errors.CodeRejected, rejected.Code)
	assert.Equal(t, "Could not relogin", rejected.Message)
}

func TestClient_PostJSON(t *testing.T) {
	var gotContentType, gotBody string

	e := gin.New()
	e.POST(transport.PathSubmitAnswer, func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		gotBody = string(b)
		gotContentType = c.ContentType()
		c.String(http.StatusAccepted, "ok")
	})

	c := makeClient(t, e)

	_, err := c.PostJSON(context.Background(), transport.PathSubmitAnswer, map[string]string{"user": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"user":"alice"}`, gotBody)
}

func TestClient_RequestUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := transport.NewClient(transport.Config{BaseURL: srv.URL})

	_, err := c.Request(context.Background(), http.MethodGet, transport.PathTitle, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnavailable, errors.Convert(err).Code)
}

func TestClient_Subscribe(t *testing.T) {
	e := gin.New()
	e.GET(transport.PathSSE, func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.SSEvent("message", `{"Lobby":{"users":["alice"]}}`)
		c.Writer.Flush()
		// Written the way the quiz server writes frames.
		_, _ = c.Writer.WriteString("data:\"Finished\"\n\n")
		c.Writer.Flush()
	})

	c := makeClient(t, e)

	var (
		mu       sync.Mutex
		received []string
		errs     = make(chan error, 1)
	)

	s := c.Subscribe(context.Background(),
		func(payload []byte) {
			mu.Lock()
			received = append(received, string(payload))
			mu.Unlock()
		},
		func(err error) {
			errs <- err
		},
	)

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, transport.ErrStreamClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("stream end should be reported")
	}
	<-s.Done()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{`{"Lobby":{"users":["alice"]}}`, `"Finished"`}, received)
}

func TestClient_SubscribeRejected(t *testing.T) {
	e := gin.New()
	e.GET(transport.PathSSE, func(c *gin.Context) {
		c.String(http.StatusServiceUnavailable, "not now")
	})

	c := makeClient(t, e)

	errs := make(chan error, 1)
	s := c.Subscribe(context.Background(), func([]byte) {}, func(err error) {
		errs <- err
	})
	<-s.Done()

	require.Len(t, errs, 1)
	rejected := errors.Convert(<-errs)
	assert.Equal(t, errors.CodeRejected, rejected.Code)
	assert.Equal(t, "not now", rejected.Message)
}

func TestSubscription_Close(t *testing.T) {
	opened := make(chan struct{})

	e := gin.New()
	e.GET(transport.PathSSE, func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Writer.WriteHeader(http.StatusOK)
		c.Writer.Flush()
		close(opened)
		<-c.Request.Context().Done()
	})

	c := makeClient(t, e)

	var (
		mu     sync.Mutex
		failed bool
	)
	s := c.Subscribe(context.Background(), func([]byte) {}, func(error) {
		mu.Lock()
		failed = true
		mu.Unlock()
	})

	<-opened
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, failed, "closing a subscription should not report an error")
}

func makeClient(t *testing.T, h http.Handler) *transport.Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return transport.NewClient(transport.Config{BaseURL: srv.URL})
}
