// Package api is the local control surface used by the tray app and the TUI.
// It exposes the foreground scheduler lifecycle, the ringing alarm, the
// exact-alarm permission and a full resync.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/tradertime/internal/alarm"
	"github.com/julianstephens/tradertime/internal/app"
	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/logger"
	"github.com/julianstephens/tradertime/internal/market"
	"github.com/julianstephens/tradertime/internal/models"
)

const defaultNextLimit = 10

// Foreground is the foreground scheduler lifecycle.
type Foreground interface {
	Start(ctx context.Context) bool
	Stop() bool
	IsRunning() bool
}

// Alarms is the exact-alarm service as seen by the UI.
type Alarms interface {
	Current() (alarm.Ringing, bool)
	StopCurrentAlarm() bool
	Snooze() (alarm.Alarm, error)
	CheckPermission() alarm.Permission
	Pending() []alarm.Alarm
}

// Coordinator is the resync and listing surface.
type Coordinator interface {
	Resume(ctx context.Context) (app.ResumeSummary, error)
	NextOccurrences(ctx context.Context, limit int) ([]app.Occurrence, error)
}

// CheckFunc probes one dependency for /healthz.
type CheckFunc func(ctx context.Context) error

type Option func(*Server)

// WithAlarms attaches the exact-alarm service. Without it the alarm routes
// answer 503.
func WithAlarms(a Alarms) Option {
	return func(s *Server) { s.alarms = a }
}

// WithCheck adds a named dependency probe to /healthz.
func WithCheck(name string, fn CheckFunc) Option {
	return func(s *Server) { s.checks[name] = fn }
}

func WithNow(fn func() time.Time) Option {
	return func(s *Server) {
		if fn != nil {
			s.now = fn
		}
	}
}

// Server routes control requests to the schedulers.
type Server struct {
	// ctx outlives requests. The foreground loop is started under it.
	ctx         context.Context
	foreground  Foreground
	coordinator Coordinator
	alarms      Alarms
	checks      map[string]CheckFunc
	now         func() time.Time

	mu        sync.Mutex
	lastFixed *FixedAlertEvent
}

// FixedAlertEvent records a session alert delivered by the foreground loop.
type FixedAlertEvent struct {
	ID      models.AlertID `json:"id"`
	Label   string         `json:"label"`
	FiredAt time.Time      `json:"fired_at"`
}

// Status is the foreground scheduler state.
type Status struct {
	Running        bool             `json:"running"`
	Now            time.Time        `json:"now"`
	Market         string           `json:"market"`
	LastFixedAlert *FixedAlertEvent `json:"last_fixed_alert,omitempty"`
}

// LifecycleResponse answers start and stop. Changed is false when the
// scheduler was already in the requested state.
type LifecycleResponse struct {
	Status
	Changed bool `json:"changed"`
}

// PermissionResponse is the exact-alarm permission. Available is false on
// platforms without exact alarms.
type PermissionResponse struct {
	Available       bool `json:"available"`
	Granted         bool `json:"granted"`
	NeedsUserAction bool `json:"needsUserAction"`
}

// CurrentResponse describes the ringing alarm, if any.
type CurrentResponse struct {
	Ringing   bool         `json:"ringing"`
	Alarm     *alarm.Alarm `json:"alarm,omitempty"`
	StartedAt *time.Time   `json:"started_at,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type checkResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewServer builds a server whose long-running work is bound to ctx.
func NewServer(ctx context.Context, fg Foreground, coord Coordinator, opts ...Option) *Server {
	s := &Server{
		ctx:         ctx,
		foreground:  fg,
		coordinator: coord,
		checks:      make(map[string]CheckFunc),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordFixedAlert remembers the latest session alert fired by the
// foreground scheduler so the UI can show the limited-reliability banner.
// It has the signature of the foreground fixed-alert callback.
func (s *Server) RecordFixedAlert(a models.Alert) {
	s.mu.Lock()
	s.lastFixed = &FixedAlertEvent{ID: a.ID, Label: a.DisplayLabel(), FiredAt: s.now()}
	s.mu.Unlock()
}

// Handler returns the gin engine serving every route.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())

	r.GET("/healthz", s.handleHealth)

	sched := r.Group("/scheduler")
	{
		sched.POST("/start", s.handleStart)
		sched.POST("/stop", s.handleStop)
		sched.GET("/status", s.handleStatus)
	}

	r.GET("/permissions/exact-alarm", s.handlePermission)

	al := r.Group("/alarm")
	{
		al.GET("/current", s.handleCurrent)
		al.GET("/pending", s.handlePending)
		al.POST("/stop", s.handleStopAlarm)
		al.POST("/snooze", s.handleSnooze)
	}

	r.POST("/resume", s.handleResume)
	r.GET("/alerts/next", s.handleNext)
	return r
}

// ListenAndServe serves on addr until the server context is cancelled.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting control API", "addr", addr)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case <-s.ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("Control API stopped")
		return nil
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Control API request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func respondError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, errorResponse{Error: errType, Message: message})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy := true
	checks := make(map[string]checkResult, len(s.checks))
	for name, fn := range s.checks {
		start := time.Now()
		if err := fn(ctx); err != nil {
			healthy = false
			checks[name] = checkResult{Status: "unhealthy", Error: err.Error()}
			continue
		}
		checks[name] = checkResult{Status: "healthy", LatencyMs: time.Since(start).Milliseconds()}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "version": constants.Version, "checks": checks})
}

func (s *Server) status() Status {
	now := s.now()
	st := Status{
		Running: s.foreground.IsRunning(),
		Now:     now,
		Market:  market.StateAt(now).String(),
	}
	s.mu.Lock()
	if s.lastFixed != nil {
		ev := *s.lastFixed
		st.LastFixedAlert = &ev
	}
	s.mu.Unlock()
	return st
}

func (s *Server) handleStart(c *gin.Context) {
	changed := s.foreground.Start(s.ctx)
	c.JSON(http.StatusOK, LifecycleResponse{Status: s.status(), Changed: changed})
}

func (s *Server) handleStop(c *gin.Context) {
	changed := s.foreground.Stop()
	c.JSON(http.StatusOK, LifecycleResponse{Status: s.status(), Changed: changed})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status())
}

func (s *Server) handlePermission(c *gin.Context) {
	if s.alarms == nil {
		c.JSON(http.StatusOK, PermissionResponse{})
		return
	}
	p := s.alarms.CheckPermission()
	c.JSON(http.StatusOK, PermissionResponse{Available: true, Granted: p.Granted, NeedsUserAction: p.NeedsUserAction})
}

func (s *Server) requireAlarms(c *gin.Context) bool {
	if s.alarms == nil {
		respondError(c, http.StatusServiceUnavailable, "unavailable", "exact alarms are not enabled on this platform")
		return false
	}
	return true
}

func (s *Server) handleCurrent(c *gin.Context) {
	if !s.requireAlarms(c) {
		return
	}
	r, ok := s.alarms.Current()
	if !ok {
		c.JSON(http.StatusOK, CurrentResponse{})
		return
	}
	c.JSON(http.StatusOK, CurrentResponse{Ringing: true, Alarm: &r.Alarm, StartedAt: &r.StartedAt})
}

func (s *Server) handlePending(c *gin.Context) {
	if !s.requireAlarms(c) {
		return
	}
	pending := s.alarms.Pending()
	if pending == nil {
		pending = []alarm.Alarm{}
	}
	c.JSON(http.StatusOK, gin.H{"alarms": pending})
}

func (s *Server) handleStopAlarm(c *gin.Context) {
	if !s.requireAlarms(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": s.alarms.StopCurrentAlarm()})
}

func (s *Server) handleSnooze(c *gin.Context) {
	if !s.requireAlarms(c) {
		return
	}
	a, err := s.alarms.Snooze()
	if err != nil {
		switch {
		case errors.Is(err, alarm.ErrNotRinging):
			respondError(c, http.StatusConflict, "not_ringing", err.Error())
		case errors.Is(err, alarm.ErrPermissionDenied):
			respondError(c, http.StatusForbidden, "permission_denied", err.Error())
		default:
			logger.Error("Failed to snooze alarm", "error", err)
			respondError(c, http.StatusInternalServerError, "snooze_failed", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"snoozed": a})
}

func (s *Server) handleResume(c *gin.Context) {
	sum, err := s.coordinator.Resume(c.Request.Context())
	if err != nil {
		logger.Error("Resync failed", "error", err)
		respondError(c, http.StatusInternalServerError, "resume_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) handleNext(c *gin.Context) {
	limit := defaultNextLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	occ, err := s.coordinator.NextOccurrences(c.Request.Context(), limit)
	if err != nil {
		logger.Error("Failed to list occurrences", "error", err)
		respondError(c, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	if occ == nil {
		occ = []app.Occurrence{}
	}
	c.JSON(http.StatusOK, gin.H{"occurrences": occ})
}
