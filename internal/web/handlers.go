package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eisen/internal/insights"
	"eisen/internal/matrix"
	"eisen/internal/output"
	"eisen/internal/prefs"
	"eisen/internal/schema"
	"eisen/internal/service"
	"eisen/internal/tasks"
)

const maxBodySize = 1 << 20 // 1MB

// BoardQuadrant is one quadrant of the board response.
type BoardQuadrant struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       string       `json:"color"`
	Count       int          `json:"count"`
	Tasks       []output.Ref `json:"tasks"`
}

// Board is the response of GET /api/board.
type Board struct {
	Quadrants []BoardQuadrant `json:"quadrants"`
	Completed []output.Ref    `json:"completed"`
}

// buildBoard groups the store's tasks the way the dashboard shows them.
func buildBoard(list []service.Task) Board {
	refs := output.Number(list, true)
	b := Board{Completed: []output.Ref{}}
	for _, q := range matrix.All {
		qr := output.QuadrantRefs(refs, q)
		if qr == nil {
			qr = []output.Ref{}
		}
		b.Quadrants = append(b.Quadrants, BoardQuadrant{
			ID:          q.ID(),
			Title:       q.Title(),
			Description: q.Description(),
			Color:       q.Color(),
			Count:       len(qr),
			Tasks:       qr,
		})
	}
	for _, r := range refs {
		if r.Task.IsCompleted() {
			b.Completed = append(b.Completed, r)
		}
	}
	return b
}

// statusFor maps an operation error to an HTTP status.
func statusFor(err error) int {
	var ve *schema.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, tasks.ErrTitleRequired),
		errors.Is(err, tasks.ErrNotConfirmed),
		errors.Is(err, prefs.ErrInvalidTheme),
		errors.Is(err, prefs.ErrInvalidColor):
		return http.StatusBadRequest
	case errors.Is(err, tasks.ErrTaskNotFound), errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// body reads the request body, capped at maxBodySize.
func body(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "request body exceeds maximum size of 1MB",
		})
		return nil, false
	}
	return data, true
}

// Web handlers

func (s *Server) handleIndex(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := s.currentPrefs(ctx)
	if err != nil {
		s.log.Warn("preferences unavailable", "err", err)
		p = prefs.Prefs{Theme: prefs.ThemeLight, AccentColor: prefs.DefaultAccent}
	}
	st, err := s.currentStats(ctx)
	if err != nil {
		c.String(statusFor(err), "error: %v", err)
		return
	}
	list := s.store.Tasks()
	c.HTML(http.StatusOK, "index.html", gin.H{
		"prefs":    p,
		"board":    newPageBoard(buildBoard(list), s.loc),
		"stats":    output.NewStatsView(st),
		"insights": insights.ComputeWeekly(list, s.tracker.Now(), s.loc),
	})
}

// API handlers

func (s *Server) handleListTasks(c *gin.Context) {
	list := s.store.Tasks()
	if list == nil {
		list = []service.Task{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    list,
		"count":   len(list),
	})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	data, ok := body(c)
	if !ok {
		return
	}
	nt, err := schema.DecodeCreate(data)
	if err != nil {
		fail(c, err)
		return
	}
	t, err := s.store.Create(c.Request.Context(), nt)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    t,
	})
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id := c.Param("id")
	data, ok := body(c)
	if !ok {
		return
	}
	patch, err := schema.DecodePatch(data)
	if err != nil {
		fail(c, err)
		return
	}

	cur, found := s.store.Find(id)
	if !found {
		fail(c, tasks.ErrTaskNotFound)
		return
	}
	if patch.Title != nil && *patch.Title == "" {
		fail(c, tasks.ErrTitleRequired)
		return
	}
	// Completion goes through /complete so points are awarded once.
	if patch.Status != nil && (*patch.Status == service.StatusCompleted) != cur.IsCompleted() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "use POST /api/tasks/" + id + "/complete to change completion",
		})
		return
	}

	t, err := s.store.Update(c.Request.Context(), id, patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    t,
	})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id := c.Param("id")
	confirmed := strings.EqualFold(c.Query("confirm"), "true")

	err := s.store.Delete(c.Request.Context(), id, func(service.Task) bool { return confirmed })
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task deleted",
	})
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	t, err := s.store.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    t,
	})
}

func (s *Server) handleMoveTask(c *gin.Context) {
	data, ok := body(c)
	if !ok {
		return
	}
	q, err := schema.DecodeMove(data)
	if err != nil {
		fail(c, err)
		return
	}
	t, moved, err := s.store.Move(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    t,
		"moved":   moved,
	})
}

func (s *Server) handleBoard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    buildBoard(s.store.Tasks()),
	})
}

func (s *Server) handleInsights(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    insights.ComputeWeekly(s.store.Tasks(), s.tracker.Now(), s.loc),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	st, err := s.currentStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    output.NewStatsView(st),
	})
}

func (s *Server) handleGetPrefs(c *gin.Context) {
	p, err := s.currentPrefs(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    p,
	})
}

func (s *Server) handlePutPrefs(c *gin.Context) {
	if s.prefs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "preferences are not available",
		})
		return
	}
	data, ok := body(c)
	if !ok {
		return
	}
	var req struct {
		Theme       *string `json:"theme"`
		AccentColor *string `json:"accentColor"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid JSON: " + err.Error(),
		})
		return
	}

	var next prefs.Prefs
	if req.Theme != nil {
		next.Theme = *req.Theme
	}
	if req.AccentColor != nil {
		next.AccentColor = *req.AccentColor
	}
	if err := next.Validate(); err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	if req.Theme != nil {
		if err := s.prefs.SetTheme(ctx, *req.Theme); err != nil {
			fail(c, err)
			return
		}
	}
	if req.AccentColor != nil {
		if err := s.prefs.SetAccent(ctx, *req.AccentColor); err != nil {
			fail(c, err)
			return
		}
	}
	s.handleGetPrefs(c)
}
