package transport

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gin-contrib/sse"
	"github.com/google/uuid"

	"github.com/victornm/equiz-client/internal/errors"
)

// ErrStreamClosed is reported when the server ends the push stream.
var ErrStreamClosed = stderrors.New("push stream closed by server")

// Subscription is one live push channel. It is never re-established.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	muted  atomic.Bool
}

// DisableErrors stops error delivery, for teardown.
func (s *Subscription) DisableErrors() {
	s.muted.Store(true)
}

// Close ends the channel and waits for the reader to exit. No callback fires after Close returns.
func (s *Subscription) Close() {
	s.muted.Store(true)
	s.cancel()
	<-s.done
}

// Done is closed once the reader has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscribe opens the push channel. Every pushed payload goes to onMessage;
// the failure that ends the channel goes to onError, at most once.
func (c *Client) Subscribe(ctx context.Context, onMessage func(payload []byte), onError func(err error)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer cancel()

		err := c.stream(ctx, func(payload []byte) {
			if ctx.Err() == nil {
				onMessage(payload)
			}
		})
		if ctx.Err() != nil || s.muted.Load() {
			return
		}

		onError(err)
	}()

	return s
}

func (c *Client) stream(ctx context.Context, onMessage func([]byte)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(PathSSE), nil)
	if err != nil {
		return errors.Internal(err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(headerRequestID, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("subscribe %s", PathSSE),
			errors.WithCause(err),
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return errors.Rejected(resp.StatusCode, string(b))
	}

	slog.DebugContext(ctx, "transport: push channel open")

	var (
		r     = bufio.NewReader(resp.Body)
		frame bytes.Buffer
	)

	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			trimmed := bytes.TrimRight(line, "\r\n")
			if len(trimmed) == 0 {
				deliver(ctx, frame.Bytes(), onMessage)
				frame.Reset()
			} else {
				frame.Write(trimmed)
				frame.WriteByte('\n')
			}
		}

		if stderrors.Is(err, io.EOF) {
			return ErrStreamClosed
		}
		if err != nil {
			return errors.New(errors.CodeUnavailable,
				errors.WithMessagef("read %s", PathSSE),
				errors.WithCause(err),
			)
		}
	}
}

// deliver decodes one blank-line terminated frame.
func deliver(ctx context.Context, frame []byte, onMessage func([]byte)) {
	if len(frame) == 0 {
		return
	}

	events, err := sse.Decode(bytes.NewReader(append(frame, '\n')))
	if err != nil {
		slog.ErrorContext(ctx, "transport: decode push frame failed", "frame", string(frame), "error", err)
		return
	}

	for _, ev := range events {
		data, ok := ev.Data.(string)
		if !ok || data == "" {
			continue
		}
		onMessage([]byte(data))
	}
}
