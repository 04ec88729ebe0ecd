// Package server exposes the apply pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"

	"go-hrskip-automation/internal/apply"
	"go-hrskip-automation/internal/hh"
	"go-hrskip-automation/internal/lifecycle"
	"go-hrskip-automation/internal/models"
	"go-hrskip-automation/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// VacancySource resolves a platform job id (hh.Client).
type VacancySource interface {
	GetVacancy(ctx context.Context, id string) (models.Vacancy, error)
}

type Server struct {
	svc       *apply.Service
	vacancies VacancySource
	// runs outlive the request; they stop when base is cancelled
	base context.Context
	wg   sync.WaitGroup
}

func New(base context.Context, svc *apply.Service, vacancies VacancySource) *Server {
	return &Server{svc: svc, vacancies: vacancies, base: base}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	r.GET("/health", s.health)
	r.POST("/applications", s.createApplication)
	r.GET("/applications/:id", s.getApplication)
	r.POST("/applications/:id/events", s.recordEvent)
	r.GET("/users/:id/applications", s.listApplications)
	r.GET("/users/:id/stats", s.stats)
	return r
}

// Wait blocks until every background run has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "HR Skip API is running!",
		"status":  "healthy",
	})
}

type createRequest struct {
	UserID  string          `json:"user_id" binding:"required"`
	JobID   string          `json:"job_id"`
	Vacancy *models.Vacancy `json:"vacancy"`
}

// createApplication reserves the pair synchronously and runs the pipeline in
// the background; the client polls GET /applications/:id.
func (s *Server) createApplication(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	var v models.Vacancy
	switch {
	case req.Vacancy != nil:
		v = *req.Vacancy
	case req.JobID != "" && s.vacancies != nil:
		var err error
		v, err = s.vacancies.GetVacancy(c.Request.Context(), req.JobID)
		if err != nil {
			writeError(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id or vacancy is required"})
		return
	}
	if v.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vacancy id is required"})
		return
	}

	run, err := s.svc.Begin(c.Request.Context(), req.UserID, v)
	if err != nil {
		writeError(c, err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := run.Process(s.base); err != nil {
			log.Printf("❌ [server] application %s: %v", run.Application().ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, run.Application())
}

func (s *Server) getApplication(c *gin.Context) {
	app, err := s.svc.Application(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

type eventRequest struct {
	Event string `json:"event" binding:"required"`
}

func (s *Server) recordEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}
	kind := lifecycle.EventKind(req.Event)
	if kind != lifecycle.EventResponded && kind != lifecycle.EventRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event must be responded or rejected"})
		return
	}

	app, err := s.svc.RecordReply(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *Server) listApplications(c *gin.Context) {
	apps, err := s.svc.Applications(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "count": len(apps)})
}

func (s *Server) stats(c *gin.Context) {
	sum, err := s.svc.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func writeError(c *gin.Context, err error) {
	var (
		dup   *store.DuplicateApplicationError
		limit *apply.DailyLimitError
		trans *lifecycle.TransitionError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &dup):
		status = http.StatusConflict
	case errors.As(err, &limit):
		status = http.StatusTooManyRequests
	case errors.As(err, &trans):
		status = http.StatusConflict
	case errors.Is(err, store.ErrNotFound), errors.Is(err, hh.ErrVacancyNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Printf("❌ [server] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
