package filler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Server struct {
	stats  *Stats
	logger *zerolog.Logger
}

func NewServer(stats *Stats, logger *zerolog.Logger) *Server {
	return &Server{
		stats:  stats,
		logger: logger,
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.getHealth)
	router.GET("/stats", s.getStats)
	return router
}

func (s *Server) RunWithContext(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	// Graceful server shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown error")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("status server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": s.stats.Snapshot()})
}
