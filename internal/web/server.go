package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lifesim/internal/logger"
	"lifesim/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const cookieName = "lifesim_session"

// JobStatus reports whether background jobs are scheduled.
type JobStatus interface {
	IsRunning() bool
}

// WebServer serves the form and the dashboard. A browser gets its own session on its
// first submit.
type WebServer struct {
	sessions  *session.Manager
	server    *http.Server
	addr      string
	page      *template.Template
	jobs      JobStatus
	startTime time.Time
}

func NewWebServer(sessions *session.Manager, addr string) *WebServer {
	ws := &WebServer{
		sessions:  sessions,
		addr:      addr,
		page:      template.Must(template.ParseFS(templateFS, "templates/page.html")),
		startTime: time.Now(),
	}
	ws.server = &http.Server{
		Addr:              addr,
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return ws
}

// SetJobStatus exposes the scheduler state on /api/status.
func (ws *WebServer) SetJobStatus(j JobStatus) {
	ws.jobs = j
}

// Handler returns the routed handler; Start serves it.
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", ws.handleStatus)
	mux.HandleFunc("/api/state", ws.handleState)
	mux.HandleFunc("/simulate", ws.handleSimulate)
	mux.HandleFunc("/reset", ws.handleReset)
	mux.HandleFunc("/chart.png", ws.handleChart)
	mux.HandleFunc("/", ws.handleRoot)
	return mux
}

// Start blocks until the server stops. http.ErrServerClosed is returned as nil.
func (ws *WebServer) Start() error {
	logger.Get().Info("🌐 starting web server", zap.String("addr", ws.addr))
	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down. A Start that has not begun listening yet returns
// http.ErrServerClosed, so Stop may run before Start.
func (ws *WebServer) Stop(ctx context.Context) error {
	return ws.server.Shutdown(ctx)
}

// controller resolves the caller's session, creating it and issuing a cookie when needed.
func (ws *WebServer) controller(w http.ResponseWriter, r *http.Request) *session.Controller {
	if c, err := r.Cookie(cookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return ws.sessions.Get(sessionKey(id))
		}
	}
	id := uuid.New()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return ws.sessions.Get(sessionKey(id))
}

// requestKey returns the session key carried by the request cookie.
func requestKey(r *http.Request) (string, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return sessionKey(id), true
}

// lookup resolves an existing session without creating one.
func (ws *WebServer) lookup(r *http.Request) (*session.Controller, bool) {
	key, ok := requestKey(r)
	if !ok {
		return nil, false
	}
	return ws.sessions.Lookup(key)
}

func sessionKey(id uuid.UUID) string { return "web:" + id.String() }
