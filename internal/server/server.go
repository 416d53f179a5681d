// Package server exposes the pipeline and automation controls over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/config"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/history"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/llm"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/pipeline"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/scheduler"
)

const (
	testPrompt       = "Say hello in Telugu"
	testMaxTokens    = 100
	defaultRunsLimit = 10
)

// Runner executes guarded pipeline runs and lists past ones.
type Runner interface {
	Run(ctx context.Context, trigger history.Trigger) (*pipeline.Result, error)
	Recent(ctx context.Context, limit int) ([]history.Run, error)
}

// Automation controls the daily schedule.
type Automation interface {
	Start() (alreadyRunning bool, err error)
	Stop() bool
	Status() scheduler.Status
}

// Server is the HTTP API.
type Server struct {
	cfg        *config.Config
	runner     Runner
	automation Automation
	provider   llm.Provider
	router     *gin.Engine
}

// New builds the router.
func New(cfg *config.Config, runner Runner, automation Automation, provider llm.Provider) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors(cfg.Server.AllowedOrigin))

	s := &Server{cfg: cfg, runner: runner, automation: automation, provider: provider, router: router}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.GET("/", s.handleIndex)
	s.router.Static("/audio", s.cfg.TTS.OutputDir)

	api := s.router.Group("/api")
	{
		api.POST("/generate-video", s.handleGenerateVideo)
		api.POST("/start-automation", s.handleStartAutomation)
		api.POST("/stop-automation", s.handleStopAutomation)
		api.GET("/automation", s.handleAutomationStatus)
		api.GET("/runs", s.handleRuns)
		api.GET("/config", s.handleConfig)
		api.GET("/test-provider", s.handleTestProvider)
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "running",
		"message":      "YouTube Automation Backend",
		"videosPerDay": s.cfg.VideosPerDay(),
		"aiProvider":   s.provider.Name(),
	})
}

// handleGenerateVideo runs the pipeline synchronously. Pipeline failures
// are still 200 with success=false in the body.
func (s *Server) handleGenerateVideo(c *gin.Context) {
	log.Info().Msg("Received video generation request")

	// A client disconnect must not abort a run that is already writing audio.
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := s.runner.Run(ctx, history.TriggerManual)
	if errors.Is(err, scheduler.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleStartAutomation(c *gin.Context) {
	already, err := s.automation.Start()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	st := s.automation.Status()
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        scheduleMessage(st.Schedule),
		"schedule":       st.Schedule,
		"nextRuns":       st.NextRuns,
		"alreadyRunning": already,
	})
}

func (s *Server) handleStopAutomation(c *gin.Context) {
	msg := "Automation stopped."
	if !s.automation.Stop() {
		msg = "Automation was not running."
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

func (s *Server) handleAutomationStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.automation.Status())
}

func (s *Server) handleRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		limit = n
	}

	runs, err := s.runner.Recent(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Listing runs failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs"})
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// handleConfig reports which credentials are present, never their values.
func (s *Server) handleConfig(c *gin.Context) {
	sec := s.cfg.Secrets
	hasAIKey := s.provider.IsConfigured()
	c.JSON(http.StatusOK, gin.H{
		"configured":     hasAIKey && sec.YouTubeClientID != "",
		"channelId":      sec.ChannelID,
		"aiProvider":     s.provider.Name(),
		"model":          s.cfg.LLM.Model,
		"ttsProvider":    s.cfg.TTS.Provider,
		"language":       s.cfg.TTS.Language,
		"hasAIKey":       hasAIKey,
		"hasTTSKey":      sec.TTSAPIKey != "",
		"hasYouTubeKeys": sec.HasYouTubeKeys(),
	})
}

func (s *Server) handleTestProvider(c *gin.Context) {
	reply, err := s.provider.Generate(c.Request.Context(), testPrompt, testMaxTokens)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "response": reply})
}

// scheduleMessage renders daily on-the-hour specs as "9AM, 1PM"; anything
// else falls back to a count.
func scheduleMessage(specs []string) string {
	labels := make([]string, 0, len(specs))
	for _, spec := range specs {
		f := strings.Fields(spec)
		if len(f) != 5 || f[0] != "0" || f[2] != "*" || f[3] != "*" || f[4] != "*" {
			return fmt.Sprintf("Automation scheduled for %d runs daily!", len(specs))
		}
		hour, err := strconv.Atoi(f[1])
		if err != nil || hour < 0 || hour > 23 {
			return fmt.Sprintf("Automation scheduled for %d runs daily!", len(specs))
		}
		labels = append(labels, time.Date(0, 1, 1, hour, 0, 0, 0, time.UTC).Format("3PM"))
	}
	return "Automation scheduled for " + strings.Join(labels, ", ") + " daily!"
}

// Serve listens on port until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, srv *Server, port int) error {
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", port).Msg("Server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
