package httpapi

import (
	"context"
	"errors"
	"net/http"

	"adpilot/internal/logger"
	"adpilot/internal/optimizer"
	"adpilot/internal/platform"
	"adpilot/internal/scoring"
	"adpilot/internal/store"
	"adpilot/internal/types"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	runner     *optimizer.Runner
	states     store.StateStore
	scoring    *scoring.Engine
	metrics    platform.MetricsSource
	windowDays int
}

func entityParams(c *gin.Context) (types.EntityType, string, bool) {
	entityType := types.EntityType(c.Param("entityType"))
	entityID := c.Param("entityId")
	if !entityType.Valid() || entityID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entityType must be campaign|adset|ad and entityId must be set"})
		return "", "", false
	}
	return entityType, entityID, true
}

func (h *handlers) runOne(c *gin.Context) {
	entityType, entityID, ok := entityParams(c)
	if !ok {
		return
	}
	if err := h.runner.RunForEntity(c.Request.Context(), entityType, entityID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "evaluated"})
}

// runAll kicks off a full sweep in the background; a sweep can take minutes
// and the trigger should not hold an HTTP connection open for it.
func (h *handlers) runAll(c *gin.Context) {
	go func() {
		if err := h.runner.RunAll(context.Background()); err != nil {
			logger.Errorf("http-triggered batch run failed: %v", err)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "sweep started"})
}

func (h *handlers) listStates(c *gin.Context) {
	states, err := h.states.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"states": states})
}

func (h *handlers) getState(c *gin.Context) {
	entityType, entityID, ok := entityParams(c)
	if !ok {
		return
	}
	st, err := h.states.Load(c.Request.Context(), entityType, entityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no optimization state for entity"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handlers) getScore(c *gin.Context) {
	entityType, entityID, ok := entityParams(c)
	if !ok {
		return
	}
	summary, err := h.metrics.GetEntitySummary(c.Request.Context(), entityType, entityID, h.windowDays)
	if err != nil {
		if errors.Is(err, platform.ErrEntityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entity not found on platform"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
		"score":   h.scoring.Evaluate(*summary),
	})
}
