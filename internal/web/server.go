// Package web hosts the contact manager in the browser. Every browser tab gets its own
// controller session; the tab forwards its events with POST requests and receives page patches
// through a server-sent event stream.
package web

import (
	"context"
	_ "embed"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/contact-manager/internal/controller"
	"gitlab.com/dirk.krummacker/contact-manager/internal/events"
	"go.uber.org/zap"
)

// sessionCookie is the name of the cookie that carries the session id.
const sessionCookie = "contacts_session"

// attachTimeout is how long a new session waits for its browser to open the patch stream.
const attachTimeout = time.Minute

// reconnectGrace is how long a session survives without a patch stream after one was open, so
// that the browser can reconnect after a short network failure.
const reconnectGrace = 15 * time.Second

//go:embed static/shim.js
var shimJS []byte

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body>
  <header><h1>{{.Title}}</h1></header>
  <main></main>
  <script src="/static/shim.js"></script>
</body>
</html>
`))

// wireEvent is the JSON form of a page event as sent by the shim. Path lists the target and its
// ancestors, innermost first.
type wireEvent struct {
	Kind      events.Kind         `json:"kind" binding:"required,oneof=submit click input change"`
	Path      []events.Element    `json:"path" binding:"required,min=1"`
	Form      map[string][]string `json:"form"`
	Inputs    map[string]string   `json:"inputs"`
	Confirmed bool                `json:"confirmed"`
}

// toEvent links the path elements to their parents and builds the event.
func (w wireEvent) toEvent() events.Event {
	elements := make([]*events.Element, len(w.Path))
	for i := range w.Path {
		elements[i] = &w.Path[i]
	}
	for i := 0; i < len(elements)-1; i++ {
		elements[i].Parent = elements[i+1]
	}
	return events.Event{
		Kind:      w.Kind,
		Target:    elements[0],
		Form:      w.Form,
		Inputs:    w.Inputs,
		Confirmed: w.Confirmed,
	}
}

type session struct {
	ctx        context.Context
	controller *controller.Controller
	page       *sessionPage
	cancel     context.CancelFunc
	// expiry ends the session while no stream is attached. streams counts the attached streams.
	// Both are guarded by Server.mu.
	expiry  *time.Timer
	streams int
}

// Server keeps the sessions of all open browser tabs.
type Server struct {
	ctx            context.Context
	api            controller.API
	logger         *zap.Logger
	searchDebounce time.Duration
	title          string
	reconnectGrace time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

// NewServer creates a server whose sessions use api. Sessions stop when ctx is canceled.
func NewServer(ctx context.Context, api controller.API, logger *zap.Logger, searchDebounce time.Duration) *Server {
	return &Server{
		ctx:            ctx,
		api:            api,
		logger:         logger,
		searchDebounce: searchDebounce,
		title:          "Contact Manager",
		reconnectGrace: reconnectGrace,
		sessions:       make(map[string]*session),
	}
}

// SetupHttpRouter registers all endpoints of the page host. Request logging can be turned off.
func (s *Server) SetupHttpRouter(logging bool) *gin.Engine {
	var router *gin.Engine
	if logging {
		router = gin.Default()
	} else {
		router = gin.New()
		router.Use(gin.Recovery())
	}
	router.GET("/", s.index)
	router.GET("/static/shim.js", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/javascript; charset=utf-8", shimJS)
	})
	router.GET("/session/stream", s.stream)
	router.POST("/session/events", s.postEvent)
	return router
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// index starts a new session and responds with the page shell.
func (s *Server) index(c *gin.Context) {
	id := s.startSession()
	c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
	var shell strings.Builder
	if err := shellTemplate.Execute(&shell, gin.H{"Title": s.title}); err != nil {
		s.logger.Error("could not render shell", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(shell.String()))
}

// stream sends the patches of the session as server-sent events until the browser disconnects.
// Patches produced while the browser reconnects stay queued; the session ends if no stream is
// attached again within the reconnect grace period.
func (s *Server) stream(c *gin.Context) {
	id, sess := s.attach(c)
	if sess == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "session not found"})
		return
	}
	defer s.detach(id, sess)

	c.Header("Cache-Control", "no-cache")
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case patch := <-sess.page.outbox:
			c.SSEvent("patch", patch)
			return true
		case <-ctx.Done():
			return false
		case <-sess.ctx.Done():
			return false
		}
	})
}

// postEvent hands a page event to the session's controller.
func (s *Server) postEvent(c *gin.Context) {
	_, sess := s.lookup(c)
	if sess == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "session not found"})
		return
	}
	var ev wireEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid event"})
		return
	}
	if !sess.controller.Post(ev.toEvent()) {
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"message": "session closed"})
		return
	}
	c.Status(http.StatusAccepted)
}

// startSession creates a controller for a new browser tab and returns the session id.
func (s *Server) startSession() string {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(s.ctx)
	page := newSessionPage(ctx, s.logger)
	sess := &session{
		ctx:        ctx,
		controller: controller.New(s.api, page, s.logger.With(zap.String("session", id)), s.searchDebounce),
		page:       page,
		cancel:     cancel,
	}
	s.mu.Lock()
	sess.expiry = time.AfterFunc(attachTimeout, func() { s.endSession(id) })
	s.sessions[id] = sess
	s.mu.Unlock()

	go sess.controller.Run(ctx)
	s.logger.Info("session started", zap.String("session", id))
	return id
}

func (s *Server) endSession(id string) {
	s.mu.Lock()
	sess, found := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if found {
		sess.expiry.Stop()
		sess.cancel()
		s.logger.Info("session ended", zap.String("session", id))
	}
}

// attach stops the expiry of the session of the request and counts the new stream.
func (s *Server) attach(c *gin.Context) (string, *session) {
	id, err := c.Cookie(sessionCookie)
	if err != nil {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	if sess != nil {
		sess.streams++
		sess.expiry.Stop()
	}
	return id, sess
}

// detach arms the expiry of the session when its last stream is gone.
func (s *Server) detach(id string, sess *session) {
	if s.ctx.Err() != nil {
		s.endSession(id)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.streams--
	if sess.streams == 0 && s.sessions[id] == sess {
		sess.expiry.Reset(s.reconnectGrace)
		s.logger.Debug("session detached", zap.String("session", id))
	}
}

func (s *Server) lookup(c *gin.Context) (string, *session) {
	id, err := c.Cookie(sessionCookie)
	if err != nil {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return id, s.sessions[id]
}
