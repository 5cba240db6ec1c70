// Package web serves the analysis form to browsers.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dyike/StockAnalyzer/internal/analysis"
	"github.com/dyike/StockAnalyzer/internal/form"
)

//go:embed templates/*.html
var templatesFS embed.FS

const missingInputMessage = "Please fill in both the API key and the stock name."

type Options struct {
	Addr     string
	Analyzer form.Analyzer
	Timeout  time.Duration
	Logger   *zap.Logger
	Debug    bool
}

// Server renders the form. Every submission gets its own controller, so
// nothing typed by one visitor is visible to another.
type Server struct {
	addr   string
	engine *gin.Engine
	logger *zap.Logger

	mu       sync.RWMutex
	analyzer form.Analyzer
	timeout  time.Duration
}

// page is what index.html renders. The form itself never posts; a script
// calls /analyze and keeps both inputs as typed.
type page struct {
	SubmitLabel     string
	BusyLabel       string
	ResultTitle     string
	FallbackMessage string
}

// analyzeResponse is the JSON reply of POST /analyze.
type analyzeResponse struct {
	Status      string  `json:"status"`
	SubmitLabel string  `json:"submitLabel"`
	Analysis    *string `json:"analysis,omitempty"`
	Error       string  `json:"error,omitempty"`
}

func NewServer(opts Options) (*Server, error) {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		addr:     opts.Addr,
		engine:   gin.New(),
		logger:   logger,
		analyzer: opts.Analyzer,
		timeout:  opts.Timeout,
	}
	s.engine.SetHTMLTemplate(tmpl)
	s.engine.Use(gin.Recovery(), s.requestLogger(), noStore())

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.getForm)
	s.engine.POST("/analyze", s.postAnalyze)
	s.engine.GET("/healthz", s.getHealth)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// SetAnalyzer swaps the collaborator used by subsequent submissions.
func (s *Server) SetAnalyzer(analyzer form.Analyzer, timeout time.Duration) {
	s.mu.Lock()
	s.analyzer = analyzer
	s.timeout = timeout
	s.mu.Unlock()
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web form listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("web form shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) getForm(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", page{
		SubmitLabel:     form.SubmitLabel,
		BusyLabel:       form.BusyLabel,
		ResultTitle:     form.ResultTitle,
		FallbackMessage: analysis.FallbackMessage,
	})
}

func (s *Server) postAnalyze(c *gin.Context) {
	var req analysis.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, toResponse(form.Failed("Invalid request body")))
		return
	}

	s.mu.RLock()
	analyzer, timeout := s.analyzer, s.timeout
	s.mu.RUnlock()

	ctrl := form.New(analyzer, form.WithLogger(s.logger), form.WithTimeout(timeout))
	ctrl.SetCredential(req.APIKey)
	ctrl.SetTicker(req.Stock)

	// The request context ends when the browser goes away, which cancels
	// the upstream call too.
	st, err := ctrl.Submit(c.Request.Context())
	switch {
	case errors.Is(err, form.ErrMissingInput):
		c.JSON(http.StatusBadRequest, toResponse(form.Failed(missingInputMessage)))
	case st.Status() == form.StatusFailed:
		c.JSON(http.StatusBadGateway, toResponse(st))
	default:
		c.JSON(http.StatusOK, toResponse(st))
	}
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func toResponse(st form.State) analyzeResponse {
	resp := analyzeResponse{
		Status:      st.Status().String(),
		SubmitLabel: st.SubmitLabel(),
	}
	if text, ok := st.AnalysisText(); ok {
		resp.Analysis = &text
	}
	resp.Error, _ = st.ErrorMessage()
	return resp
}

// requestLogger logs request metadata only; form bodies carry the API key.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func noStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}
