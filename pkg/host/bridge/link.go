package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/entrhq/pagepilot/pkg/logging"
)

type result struct {
	raw json.RawMessage
	err error
}

// link is one WebSocket connection to the shim with its pending commands.
type link struct {
	id     string
	ws     *websocket.Conn
	logger *logging.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan result
	nextID  int64
	err     error // set once the link is shut down
}

func newLink(id string, ws *websocket.Conn, logger *logging.Logger) *link {
	return &link{
		id:      id,
		ws:      ws,
		logger:  logger,
		pending: make(map[int64]chan result),
	}
}

func (l *link) write(f Frame) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.ws.WriteJSON(f)
}

func (l *link) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s params: %w", method, err)
		}
		raw = encoded
	}

	ch := make(chan result, 1)
	l.mu.Lock()
	if l.err != nil {
		err := l.err
		l.mu.Unlock()
		return nil, err
	}
	l.nextID++
	id := l.nextID
	l.pending[id] = ch
	l.mu.Unlock()

	if err := l.write(Frame{ID: id, Method: method, Params: raw}); err != nil {
		l.forget(id)
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			if ce, ok := res.err.(*CommandError); ok {
				ce.Method = method
			}
			return nil, res.err
		}
		return res.raw, nil
	case <-ctx.Done():
		l.forget(id)
		return nil, fmt.Errorf("%s timed out: %w", method, ctx.Err())
	}
}

// resolve completes the pending command f answers. Unknown ids are late
// answers to timed out commands and are dropped.
func (l *link) resolve(f Frame) {
	l.mu.Lock()
	ch, ok := l.pending[f.ID]
	delete(l.pending, f.ID)
	l.mu.Unlock()

	if !ok {
		l.logger.Debugf("dropping answer for unknown command %d", f.ID)
		return
	}
	if f.Error != "" {
		ch <- result{err: &CommandError{Message: f.Error}}
		return
	}
	ch <- result{raw: f.Result}
}

func (l *link) forget(id int64) {
	l.mu.Lock()
	delete(l.pending, id)
	l.mu.Unlock()
}

// shutdown rejects every pending command with err and closes the socket.
func (l *link) shutdown(err error) {
	l.mu.Lock()
	if l.err != nil {
		l.mu.Unlock()
		return
	}
	l.err = err
	pending := l.pending
	l.pending = make(map[int64]chan result)
	l.mu.Unlock()

	for _, ch := range pending {
		ch <- result{err: err}
	}
	l.ws.Close()
}
