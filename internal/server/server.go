// Package server exposes the practice service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/logger"
	"github.com/abhisek/cognify/internal/metrics"
	"github.com/abhisek/cognify/internal/session"
)

// DefaultQuestions is the session size when a start request omits n.
const DefaultQuestions = 5

// Practice serves the two learner requests.
type Practice interface {
	StartSession(ctx context.Context, req session.StartRequest) (*session.StartResponse, error)
	SubmitAnswer(ctx context.Context, req session.AnswerRequest) (*session.AnswerResponse, error)
}

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the gin HTTP surface.
type Server struct {
	practice Practice
	graph    *conceptgraph.Graph
	pinger   Pinger
	log      *logger.Logger
	engine   *gin.Engine
}

// New builds the router. pinger may be nil.
func New(practice Practice, graph *conceptgraph.Graph, pinger Pinger, log *logger.Logger) *Server {
	s := &Server{
		practice: practice,
		graph:    graph,
		pinger:   pinger,
		log:      logger.OrNop(log).With("component", "server"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")
	{
		v1.GET("/concepts", s.concepts)
		v1.POST("/practice/start", s.start)
		v1.POST("/practice/answer", s.answer)
	}
	s.engine = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	if s.pinger != nil {
		if err := s.pinger.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type conceptView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Topic         string   `json:"topic"`
	Subtopic      string   `json:"subtopic,omitempty"`
	Difficulty    int      `json:"difficulty,omitempty"`
	Prerequisites []string `json:"prerequisites"`
}

func (s *Server) concepts(c *gin.Context) {
	topic := c.Query("topic")
	var all []conceptgraph.Concept
	if topic != "" {
		all = s.graph.ByTopic(topic)
	} else {
		all = s.graph.All()
	}
	out := make([]conceptView, 0, len(all))
	for _, cp := range all {
		prereqs := cp.Prerequisites
		if prereqs == nil {
			prereqs = []string{}
		}
		out = append(out, conceptView{
			ID:            cp.ID,
			Name:          cp.Name(),
			Topic:         cp.Topic,
			Subtopic:      cp.Subtopic,
			Difficulty:    cp.Difficulty,
			Prerequisites: prereqs,
		})
	}
	c.JSON(http.StatusOK, gin.H{"concepts": out, "count": len(out)})
}

type startBody struct {
	UserID  int64  `json:"user_id"`
	Concept string `json:"concept"`
	Topic   string `json:"topic"`
	N       *int   `json:"n"`
}

func (s *Server) start(c *gin.Context) {
	var body startBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	req := session.StartRequest{UserID: body.UserID, Concept: body.Concept, N: DefaultQuestions}
	if req.Concept == "" {
		req.Concept = body.Topic
	}
	if body.N != nil {
		req.N = *body.N
	}

	resp, err := s.practice.StartSession(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) answer(c *gin.Context) {
	var req session.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	resp, err := s.practice.SubmitAnswer(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// writeError maps the session error taxonomy to a status code.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		verr *session.ValidationError
		nf   *session.NotFoundError
		exh  *session.ExhaustionError
		tout *session.UpstreamTimeoutError
		perr *session.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error()})
	case errors.As(err, &exh):
		c.JSON(http.StatusNotFound, gin.H{"error": "no content available", "concept": exh.Concept})
	case errors.As(err, &tout):
		s.log.Warn("upstream timeout", "path", c.FullPath(), "op", tout.Op, "error", err)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": tout.Error()})
	case errors.As(err, &perr):
		s.log.Error("persistence failure", "path", c.FullPath(), "op", perr.Op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": perr.Op + " failed"})
	default:
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
