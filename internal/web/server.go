// Package web serves the dashboard and the JSON API over the task store.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"eisen/internal/prefs"
	"eisen/internal/service"
	"eisen/internal/stats"
	"eisen/internal/tasks"
)

//go:embed templates/*.html
var templates embed.FS

// ShutdownTimeout bounds the graceful shutdown of Run.
const ShutdownTimeout = 5 * time.Second

// Options wires a Server.
type Options struct {
	// Store is the user's task list. Run loads it and keeps it live.
	Store *tasks.Store

	// Stats reads the user's counters.
	Stats stats.Store

	// Tracker supplies the clock and calendar day for stats.
	Tracker *stats.Tracker

	// Prefs holds theme and accent. Optional.
	Prefs *prefs.Store

	Location *time.Location
	Logger   *log.Logger
}

// Server is the dashboard web server.
type Server struct {
	store   *tasks.Store
	stats   stats.Store
	tracker *stats.Tracker
	prefs   *prefs.Store
	loc     *time.Location
	log     *log.Logger
	router  *gin.Engine
}

// NewServer creates a new web server.
func NewServer(opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Tracker == nil {
		opts.Tracker = stats.NewTracker(opts.Stats, opts.Location, opts.Logger)
	}

	router := gin.New()
	s := &Server{
		store:   opts.Store,
		stats:   opts.Stats,
		tracker: opts.Tracker,
		prefs:   opts.Prefs,
		loc:     opts.Location,
		log:     opts.Logger,
		router:  router,
	}

	router.Use(gin.Recovery(), s.logRequests)
	router.SetHTMLTemplate(template.Must(template.New("").Funcs(template.FuncMap{
		"pct": func(f float64) int { return int(f * 100) },
	}).ParseFS(templates, "templates/*.html")))

	// Web routes
	router.GET("/", s.handleIndex)

	// API routes
	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.PATCH("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/tasks/:id/complete", s.handleCompleteTask)
		api.POST("/tasks/:id/move", s.handleMoveTask)
		api.GET("/board", s.handleBoard)
		api.GET("/insights", s.handleInsights)
		api.GET("/stats", s.handleStats)
		api.GET("/prefs", s.handleGetPrefs)
		api.PUT("/prefs", s.handlePutPrefs)
	}

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run loads the task list, subscribes to changes and serves on addr until
// ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	if err := s.store.Load(ctx); err != nil {
		return err
	}
	sub, err := s.store.Watch(ctx)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	srv := &http.Server{Addr: addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("serving dashboard", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// logRequests logs every request at debug level.
func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("http request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

// currentStats reads the counters as they stand today. A missing row reads as zero.
func (s *Server) currentStats(ctx context.Context) (service.UserStats, error) {
	userID := s.store.UserID()
	st, err := s.stats.GetStats(ctx, userID)
	if errors.Is(err, service.ErrNotFound) {
		return service.UserStats{UserID: userID}, nil
	}
	if err != nil {
		s.log.Error("error fetching user stats", "err", err)
		return service.UserStats{}, fmt.Errorf("fetch stats: %w", err)
	}
	return stats.Effective(st, s.tracker.Today()), nil
}

// currentPrefs returns stored preferences, or defaults without a store.
func (s *Server) currentPrefs(ctx context.Context) (prefs.Prefs, error) {
	if s.prefs == nil {
		return prefs.Prefs{Theme: prefs.ThemeLight, AccentColor: prefs.DefaultAccent}, nil
	}
	return s.prefs.Load(ctx)
}
