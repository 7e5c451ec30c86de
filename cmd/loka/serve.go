package main

import (
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lokascript/loka/loka"
)

const serviceVersion = "0.1.0"

type compileRequest struct {
	Scripts map[string]string `json:"scripts"`
}

type compileResponse struct {
	Compiled map[string]string        `json:"compiled"`
	Metadata map[string]loka.Metadata `json:"metadata"`
	Timings  timings                  `json:"timings"`
	Errors   []scriptError            `json:"errors"`
}

type validateRequest struct {
	Script string `json:"script"`
}

type validateResponse struct {
	Valid    bool           `json:"valid"`
	Errors   []scriptError  `json:"errors"`
	Metadata *loka.Metadata `json:"metadata,omitempty"`
}

type scriptError struct {
	Script  string `json:"script,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

type timings struct {
	Total float64 `json:"total"`
	Parse float64 `json:"parse"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    int64     `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

type server struct {
	runtime *loka.Runtime
	logger  *slog.Logger
	started time.Time
}

func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	addrFlag := fs.String("addr", "", "listen address (overrides LOKA_ADDR)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loka.LoadEnvConfig()
	if err != nil {
		return err
	}
	addr := cfg.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	runtime, err := loka.NewRuntime(cfg.RuntimeConfig())
	if err != nil {
		return err
	}
	srv := &server{
		runtime: runtime,
		logger:  slog.Default(),
		started: time.Now(),
	}

	router := srv.router()
	srv.logger.Info("listening", slog.String("addr", addr))
	return router.Run(addr)
}

func (s *server) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	api := router.Group("/api")
	api.POST("/compile", s.handleCompile)
	api.POST("/validate", s.handleValidate)
	api.POST("/analyze", s.handleAnalyze)
	return router
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:    "healthy",
		Version:   serviceVersion,
		Uptime:    int64(time.Since(s.started).Seconds()),
		Timestamp: time.Now().UTC(),
	})
}

// handleCompile parses every submitted script. Scripts that parse echo back
// in the compiled map with their metadata; scripts that fail contribute an
// entry to errors instead.
func (s *server) handleCompile(c *gin.Context) {
	var req compileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}
	if len(req.Scripts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no scripts provided"})
		return
	}

	start := time.Now()
	resp := compileResponse{
		Compiled: make(map[string]string, len(req.Scripts)),
		Metadata: make(map[string]loka.Metadata, len(req.Scripts)),
		Errors:   []scriptError{},
	}

	parseStart := time.Now()
	for name, source := range req.Scripts {
		script, err := s.runtime.Compile(source)
		if err != nil {
			resp.Errors = append(resp.Errors, newScriptError(name, err))
			continue
		}
		resp.Compiled[name] = source
		resp.Metadata[name] = loka.Analyze(script)
	}
	parse := time.Since(parseStart)

	resp.Timings = timings{
		Total: float64(time.Since(start).Microseconds()) / 1000,
		Parse: float64(parse.Microseconds()) / 1000,
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) handleValidate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}

	script, err := s.runtime.Compile(req.Script)
	if err != nil {
		c.JSON(http.StatusOK, validateResponse{
			Valid:  false,
			Errors: []scriptError{newScriptError("", err)},
		})
		return
	}
	meta := loka.Analyze(script)
	c.JSON(http.StatusOK, validateResponse{
		Valid:    true,
		Errors:   []scriptError{},
		Metadata: &meta,
	})
}

func (s *server) handleAnalyze(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}

	script, err := s.runtime.Compile(req.Script)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "parse failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, loka.Analyze(script))
}

func newScriptError(name string, err error) scriptError {
	se := scriptError{Script: name, Message: err.Error()}
	var parseErr *loka.ParseError
	if errors.As(err, &parseErr) {
		se.Message = parseErr.Message
		se.Line = parseErr.Pos.Line
		se.Column = parseErr.Pos.Column
	}
	return se
}
