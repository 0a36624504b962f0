package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tradebook/internal/actor"
	cutoffdomain "github.com/smallbiznis/tradebook/internal/cutoff/domain"
)

type cutoffTransition func(ctx context.Context, by actor.Actor) (cutoffdomain.Snapshot, error)

func (s *Server) GetCutoff(c *gin.Context) {
	snap, err := s.cutoffSvc.Current(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snap})
}

func (s *Server) ListCutoffHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := s.cutoffSvc.History(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}

func (s *Server) OpenCutoff(c *gin.Context) {
	s.transitionCutoff(c, s.cutoffSvc.Open)
}

func (s *Server) CloseCutoff(c *gin.Context) {
	s.transitionCutoff(c, s.cutoffSvc.Close)
}

func (s *Server) ResetCutoff(c *gin.Context) {
	s.transitionCutoff(c, s.cutoffSvc.Reset)
}

func (s *Server) transitionCutoff(c *gin.Context, fn cutoffTransition) {
	by, ok := requireActor(c)
	if !ok {
		return
	}
	snap, err := fn(c.Request.Context(), by)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": snap})
}
