// Package live serves websocket sessions over mounted documents.
//
// Each connection owns one document and engine. The client sends events
// to dispatch:
//
//	{"selector": "#inc", "event": "click", "detail": null}
//
// and the server replies with the settled document after every event:
//
//	{"type": "render", "html": "<html>...</html>"}
//
// Faults are reported as {"type": "error", "code": "E005", "error": "..."}
// and leave the session open.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/internal/logging"
	"github.com/vango-dev/tendril/pkg/htmltree"
	"github.com/vango-dev/tendril/pkg/tendril"
)

// ReplyType is the type of a server message.
type ReplyType string

const (
	ReplyRender ReplyType = "render"
	ReplyError  ReplyType = "error"
)

// Message is an event sent by the client.
type Message struct {
	Selector string `json:"selector"`
	Event    string `json:"event"`
	Detail   any    `json:"detail,omitempty"`
}

// Reply is sent to the client.
type Reply struct {
	Type  ReplyType `json:"type"`
	HTML  string    `json:"html,omitempty"`
	Code  string    `json:"code,omitempty"`
	Error string    `json:"error,omitempty"`
}

// Page is one document with its engine.
type Page struct {
	Doc    *htmltree.Document
	Engine *tendril.Engine

	// Close, if set, releases resources held for the page.
	Close func()
}

// Builder creates the page for a new session.
type Builder func(r *http.Request) (*Page, error)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSettleTimeout bounds how long an event may take to settle.
func WithSettleTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.settle = d
	}
}

// Server manages websocket sessions.
type Server struct {
	build    Builder
	logger   *slog.Logger
	settle   time.Duration
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

// NewServer creates a session server building pages with build.
func NewServer(build Builder, opts ...Option) *Server {
	s := &Server{
		build:  build,
		settle: 5 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Preview server
			},
		},
		sessions: make(map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	return s
}

// ServeHTTP upgrades the connection and runs a session until the client
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	page, err := s.build(r)
	if err != nil {
		writeReply(conn, errorReply(err))
		return
	}
	sess := &Session{server: s, conn: conn, page: page}
	defer sess.close()

	if !page.Engine.Mounted() {
		if err := page.Engine.Mount(); err != nil {
			sess.send(errorReply(err))
			return
		}
	}

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
	}()

	s.logger.Debug("session opened", "remote", r.RemoteAddr)
	if err := sess.render(r.Context()); err != nil {
		return
	}
	sess.serve(r.Context())
	s.logger.Debug("session closed", "remote", r.RemoteAddr)
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close closes every session connection.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sess := range s.sessions {
		sess.conn.Close()
		delete(s.sessions, sess)
	}
}

// Session is one connected client.
type Session struct {
	server *Server
	conn   *websocket.Conn
	page   *Page
	wmu    sync.Mutex
}

func (c *Session) serve(ctx context.Context) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(Reply{Type: ReplyError, Error: "malformed message: " + err.Error()})
			continue
		}
		if err := c.handle(ctx, msg); err != nil {
			if !c.send(errorReply(err)) {
				return
			}
			continue
		}
		if err := c.render(ctx); err != nil {
			return
		}
	}
}

func (c *Session) handle(ctx context.Context, msg Message) error {
	if msg.Selector == "" || msg.Event == "" {
		return tderrors.New(tderrors.ErrDispatchSpec).
			WithDetail("Messages need a selector and an event.")
	}
	if err := c.page.Engine.Dispatch(msg.Selector, msg.Event, msg.Detail); err != nil {
		return err
	}
	return c.settleEngine(ctx)
}

func (c *Session) settleEngine(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.server.settle)
	defer cancel()
	return c.page.Engine.Settle(ctx)
}

func (c *Session) render(ctx context.Context) error {
	if err := c.settleEngine(ctx); err != nil {
		c.send(errorReply(err))
		return err
	}
	if !c.send(Reply{Type: ReplyRender, HTML: c.page.Doc.Render()}) {
		return websocket.ErrCloseSent
	}
	return nil
}

func (c *Session) send(reply Reply) bool {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return writeReply(c.conn, reply)
}

func (c *Session) close() {
	if c.page.Engine.Mounted() {
		_ = c.page.Engine.Unmount()
	}
	if c.page.Close != nil {
		c.page.Close()
	}
}

func writeReply(conn *websocket.Conn, reply Reply) bool {
	data, err := json.Marshal(reply)
	if err != nil {
		return false
	}
	return conn.WriteMessage(websocket.TextMessage, data) == nil
}

func errorReply(err error) Reply {
	return Reply{Type: ReplyError, Code: tderrors.CodeOf(err), Error: err.Error()}
}
