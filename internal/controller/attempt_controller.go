package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Margays/internal/auth"
	"github.com/lshigami/Margays/internal/dto"
	"github.com/lshigami/Margays/internal/service"
	"github.com/rs/zerolog/log"
)

// AttemptController exposes the attempt lifecycle over HTTP. Every route
// requires an authenticated principal; the auth middleware is attached when
// routes are registered.
type AttemptController struct {
	attemptSvc service.AttemptService
}

func NewAttemptController(attemptSvc service.AttemptService) *AttemptController {
	return &AttemptController{attemptSvc: attemptSvc}
}

func (ctrl *AttemptController) RegisterRoutes(router *gin.RouterGroup) {
	exams := router.Group("/exams")
	exams.POST("/:exam_id/attempts", ctrl.StartAttemptHandler)
	exams.GET("/:exam_id/my-attempts", ctrl.ListMyAttemptsHandler)

	attempts := router.Group("/attempts")
	attempts.PUT("/:attempt_id/answers", ctrl.SaveAnswersHandler)
	attempts.POST("/:attempt_id/submit", ctrl.SubmitAttemptHandler)
	attempts.GET("/:attempt_id/status", ctrl.GetAttemptStatusHandler)
	attempts.GET("/:attempt_id/result", ctrl.GetAttemptResultHandler)
}

// StartAttemptHandler godoc
// @Summary Start (or resume) an attempt for an exam
// @Description Creates a new timed attempt, or returns the caller's open attempt unchanged if one exists.
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Param exam_id path int true "Exam ID"
// @Success 201 {object} dto.AttemptHandleDTO
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 404 {object} dto.ErrorResponse "Exam not available"
// @Failure 409 {object} dto.ErrorResponse "Attempt limit reached"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /exams/{exam_id}/attempts [post]
func (ctrl *AttemptController) StartAttemptHandler(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "not authenticated"})
		return
	}
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	handle, err := ctrl.attemptSvc.StartAttempt(c.Request.Context(), principal, examID)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if handle.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, handle)
}

// SaveAnswersHandler godoc
// @Summary Save answers incrementally during an attempt
// @Description Durably records answers before the deadline without scoring them. Saving the same question again replaces the earlier answer.
// @Tags attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attempt_id path int true "Attempt ID"
// @Param answers body dto.SaveAnswersRequest true "Answers to record"
// @Success 200 {object} dto.SaveAnswersResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt finalized or deadline passed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id}/answers [put]
func (ctrl *AttemptController) SaveAnswersHandler(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "not authenticated"})
		return
	}
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	var req dto.SaveAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Failed to bind SaveAnswersRequest")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}

	resp, err := ctrl.attemptSvc.SaveAnswers(c.Request.Context(), principal, attemptID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitAttemptHandler godoc
// @Summary Submit an attempt for scoring
// @Description Finalizes the attempt and returns the scored result. Submitting an already finalized attempt returns the stored result unchanged.
// @Tags attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attempt_id path int true "Attempt ID"
// @Param submission body dto.SubmitAttemptRequest false "Final batch of answers (may be empty)"
// @Success 200 {object} dto.ResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id}/submit [post]
func (ctrl *AttemptController) SubmitAttemptHandler(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "not authenticated"})
		return
	}
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	var req dto.SubmitAttemptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn().Err(err).Msg("Failed to bind SubmitAttemptRequest")
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
			return
		}
	}

	result, err := ctrl.attemptSvc.SubmitAttempt(c.Request.Context(), principal, attemptID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetAttemptStatusHandler godoc
// @Summary Get attempt state and remaining time
// @Description Returns the attempt state and seconds remaining, computed from the server-side deadline.
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptStatusDTO
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id}/status [get]
func (ctrl *AttemptController) GetAttemptStatusHandler(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "not authenticated"})
		return
	}
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	status, err := ctrl.attemptSvc.GetAttemptStatus(c.Request.Context(), principal, attemptID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetAttemptResultHandler godoc
// @Summary Get the result of a finalized attempt
// @Description Returns the assembled result, honoring the exam's review and result disclosure policies.
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.ResultDTO
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt not finalized yet"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id}/result [get]
func (ctrl *AttemptController) GetAttemptResultHandler(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "not authenticated"})
		return
	}
	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	result, err := ctrl.attemptSvc.GetAttemptResult(c.Request.Context(), principal, attemptID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMyAttemptsHandler godoc
// @Summary List the caller's attempts for an exam
// @Tags attempts
// @Produce json
// @Security BearerAuth
// @Param exam_id path int true "Exam ID"
// @Success 200 {array} dto.AttemptSummaryDTO
// @Failure 401 {object} dto.ErrorResponse "Not authenticated"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /exams/{exam_id}/my-attempts [get]
func (ctrl *AttemptController) ListMyAttemptsHandler(c *gin.Context) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "not authenticated"})
		return
	}
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}

	attempts, err := ctrl.attemptSvc.ListUserAttempts(c.Request.Context(), principal, examID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

// respondError maps service errors onto HTTP codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotAvailable):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrAttemptLimitReached):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrAttemptAlreadyFinalized):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrDeadlinePassed):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrResultNotReady):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Message: err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "internal error"})
	}
}

func parseID(c *gin.Context, param string) (uint, bool) {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "invalid " + param + " format"})
		return 0, false
	}
	return uint(id), true
}
