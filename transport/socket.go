package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"

	"convo/contract"
	"convo/errors"

	"github.com/gorilla/websocket"
)

// frame is the wire envelope of every stream event.
type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Socket implements the stream transport over a websocket. Events are
// dispatched to at most one handler per event name from a single read
// loop; handlers therefore run sequentially.
type Socket struct {
	endpoint string
	log      *slog.Logger

	mu       sync.RWMutex
	conn     *websocket.Conn
	handlers map[string]contract.EventHandler
	done     chan struct{}
}

func NewSocket(endpoint string, log *slog.Logger) *Socket {
	return &Socket{
		endpoint: endpoint,
		log:      log,
		handlers: make(map[string]contract.EventHandler),
	}
}

// Open dials the stream endpoint identifying as userID and starts the
// read loop. Opening an already-open socket is an error: connection
// ownership lives above this layer.
func (s *Socket) Open(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return errors.ErrAlreadyOpen
	}

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("userId", userID)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return err
	}

	s.conn = conn
	s.handlers = make(map[string]contract.EventHandler)
	s.done = make(chan struct{})
	go s.readLoop(conn, s.done)
	return nil
}

// Close tears the connection down. Closing a closed socket is a no-op.
func (s *Socket) Close() error {
	s.mu.Lock()
	conn := s.conn
	done := s.done
	s.conn = nil
	s.done = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	// Best effort: tell the server we are leaving before dropping the
	// underlying connection.
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteMessage(websocket.CloseMessage, closeMsg)
	err := conn.Close()
	<-done
	return err
}

// On registers handler for the named event, replacing any previous
// one. Registration does not survive a reconnect.
func (s *Socket) On(event string, handler contract.EventHandler) {
	s.mu.Lock()
	s.handlers[event] = handler
	s.mu.Unlock()
}

// Off removes the handler for the named event.
func (s *Socket) Off(event string) {
	s.mu.Lock()
	delete(s.handlers, event)
	s.mu.Unlock()
}

// readLoop decodes frames and dispatches them until the connection
// dies. Events without a registered handler are dropped silently:
// subscription is opt-in per event name.
func (s *Socket) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("stream read failed", "error", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			s.log.Warn("dropping malformed stream frame", "error", err)
			continue
		}

		s.mu.RLock()
		handler, ok := s.handlers[f.Event]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		handler(f.Payload)
	}
}
