package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crosspair/exchange/internal/api/dto"
	"github.com/crosspair/exchange/internal/core"
	"github.com/crosspair/exchange/internal/middleware"
)

type HTTPServer struct {
	intake *core.Intake
	engine *core.Engine
	log    *zap.Logger

	// zero disables rate limiting
	rateLimit time.Duration
}

func NewHTTPServer(intake *core.Intake, engine *core.Engine, log *zap.Logger, rateLimit time.Duration) *HTTPServer {
	return &HTTPServer{intake: intake, engine: engine, log: log, rateLimit: rateLimit}
}

func (s *HTTPServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(s.log))
	if s.rateLimit > 0 {
		rl := middleware.NewRateLimiter(s.rateLimit)
		r.Use(rl.Middleware())
	}

	r.POST("/trade", s.trade)
	r.GET("/order_book", s.orderBook)
	r.GET("/health", s.health)

	return r
}

func (s *HTTPServer) Run(addr string) error {
	return s.Router().Run(addr)
}

// trade responds with a bare JSON boolean: true when the order was accepted
// and processed, false on any rejection. No finer-grained error surface
// exists on purpose.
func (s *HTTPServer) trade(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, false)
		return
	}
	c.JSON(http.StatusOK, s.intake.Submit(c.Request.Context(), raw))
}

func (s *HTTPServer) orderBook(c *gin.Context) {
	book, err := s.engine.Book(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ProjectBook(book))
}

func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
