package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/repositories/jobrepo"
)

// JobsHandler surfaces dead notification jobs for operator follow-up.
type JobsHandler struct {
	jobRepo jobrepo.IJobRepository
	logger  zerolog.Logger
}

func NewJobsHandler(jobRepo jobrepo.IJobRepository, logger zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		jobRepo: jobRepo,
		logger:  logger,
	}
}

func (h *JobsHandler) ListDead(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			c.JSON(http.StatusBadRequest, domain.ApiResponse{
				Message: "limit must be an integer between 1 and 1000",
				Success: false,
				Status:  http.StatusBadRequest,
			})
			return
		}
		limit = parsed
	}

	jobs, err := h.jobRepo.ListDead(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list dead jobs")
		c.JSON(http.StatusInternalServerError, domain.ApiResponse{
			Message: "Failed to list dead jobs",
			Success: false,
			Status:  http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}
