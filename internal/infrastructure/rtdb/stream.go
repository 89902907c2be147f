package rtdb

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxEventSize bounds one server-sent event. A device's full history is
// delivered as a single put on connect.
const maxEventSize = 16 << 20

// Server-sent event types of the streaming REST API.
const (
	eventPut         = "put"
	eventPatch       = "patch"
	eventKeepAlive   = "keep-alive"
	eventCancel      = "cancel"
	eventAuthRevoked = "auth_revoked"
)

type streamPayload struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

// Subscribe implements Store. The stream runs in its own goroutine until
// ctx is cancelled, the subscription is closed, the server cancels it or
// the store is closed. Network failures reconnect with backoff; each
// reconnect starts from the server's fresh initial snapshot.
func (s *FirebaseStore) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	if err := s.check(path); err != nil {
		return nil, err
	}
	clean := CleanPath(path)
	if isInfoPath(clean) {
		return s.subscribeInfo(ctx, clean)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(clean, cancel)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return nil, ErrStoreClosed
	}
	s.subs[sub] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.forget(sub)
		err := s.runStream(streamCtx, clean, sub)
		if streamCtx.Err() != nil {
			err = nil
		}
		sub.end(err)
	}()

	return sub, nil
}

func (s *FirebaseStore) forget(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
}

// subscribeInfo emulates .info/connected by probing on an interval and
// delivering only changes.
func (s *FirebaseStore) subscribeInfo(ctx context.Context, clean string) (*Subscription, error) {
	pollCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(clean, cancel)

	s.mu.Lock()
	s.subs[sub] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.forget(sub)
		defer sub.end(nil)

		ticker := time.NewTicker(s.reconnectMax / 2)
		defer ticker.Stop()

		var last any
		for first := true; ; first = false {
			ok, _ := s.Connected(pollCtx) //nolint:errcheck // any failure reads as disconnected
			if first || last != ok {
				last = ok
				sub.deliver(Snapshot{path: clean, value: ok})
			}
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return sub, nil
}

func (s *FirebaseStore) runStream(ctx context.Context, path string, sub *Subscription) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.reconnectMin
	eb.MaxInterval = s.reconnectMax
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(eb, ctx)

	op := func() error {
		err := s.streamOnce(ctx, path, sub, eb.Reset)
		switch {
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case errors.Is(err, ErrStreamCancelled), errors.Is(err, ErrUnauthorized):
			return backoff.Permanent(err)
		case errors.Is(err, errAuthRevoked):
			if s.tokens != nil {
				s.tokens.Invalidate()
			}
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("store stream interrupted, reconnecting", "path", displayPath(path), "error", err, "retry_in", wait)
	}

	return backoff.RetryNotify(op, b, notify)
}

// streamOnce holds one streaming connection open. It returns when the
// connection ends; the error says whether reconnecting makes sense.
func (s *FirebaseStore) streamOnce(ctx context.Context, path string, sub *Subscription, connected func()) error {
	u, err := s.endpoint(ctx, path, nil)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("rtdb: building stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: stream %s: %w", ErrRequestFailed, displayPath(path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && s.tokens != nil {
		return errAuthRevoked
	}
	if resp.StatusCode != http.StatusOK {
		return decodeResponse(resp, http.MethodGet, path, nil)
	}

	s.logger.Debug("store stream opened", "path", displayPath(path))
	connected()

	var tree any
	err = readEvents(resp.Body, func(event, data string) error {
		switch event {
		case eventPut, eventPatch:
			next, err := applyEvent(tree, event, data)
			if err != nil {
				s.logger.Warn("store stream event ignored", "path", displayPath(path), "event", event, "error", err)
				return nil
			}
			tree = next
			sub.deliver(Snapshot{path: path, value: tree})
		case eventKeepAlive:
		case eventCancel:
			return fmt.Errorf("%w: %s", ErrStreamCancelled, strings.Trim(data, `"`))
		case eventAuthRevoked:
			return errAuthRevoked
		}
		return nil
	})
	if err == nil {
		err = fmt.Errorf("%w: stream %s closed by server", ErrRequestFailed, displayPath(path))
	}
	return err
}

// applyEvent folds one put or patch into tree.
func applyEvent(tree any, event, data string) (any, error) {
	var p streamPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return tree, fmt.Errorf("decoding event: %w", err)
	}
	var value any
	if len(p.Data) > 0 {
		if err := json.Unmarshal(p.Data, &value); err != nil {
			return tree, fmt.Errorf("decoding event data: %w", err)
		}
	}
	segs := splitPath(p.Path)

	if event == eventPatch {
		patch, ok := value.(map[string]any)
		if !ok {
			return tree, fmt.Errorf("patch data is %T, want object", value)
		}
		return patchAt(tree, segs, patch), nil
	}
	return setAt(tree, segs, prune(value)), nil
}

// readEvents parses a text/event-stream body and calls fn per event.
// It returns fn's first error, a read error, or nil at EOF.
func readEvents(r io.Reader, fn func(event, data string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var event string
	var data []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if event != "" || len(data) > 0 {
				if err := fn(event, strings.Join(data, "\n")); err != nil {
					return err
				}
			}
			event, data = "", data[:0]
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}
