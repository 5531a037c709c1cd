package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"poll-service/internal/domain"
	"poll-service/internal/middleware"
	"poll-service/internal/realtime"
	"poll-service/internal/response"
	"poll-service/internal/service"
)

type PollHandler struct {
	pollService     service.PollService
	snapshotService service.SnapshotService
	feed            *realtime.FeedClient
}

func NewPollHandler(
	pollService service.PollService,
	snapshotService service.SnapshotService,
	feed *realtime.FeedClient,
) *PollHandler {
	return &PollHandler{
		pollService:     pollService,
		snapshotService: snapshotService,
		feed:            feed,
	}
}

type CreatePollRequest struct {
	Question string   `json:"question" binding:"required"`
	Choices  []string `json:"choices" binding:"required,min=2"`
}

type UpdatePollRequest struct {
	Question string `json:"question" binding:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListPolls godoc
// @Summary      List polls with results
// @Description  Returns every visible poll with aggregated vote results
// @Tags         polls
// @Produce      json
// @Success      200 {array} domain.PollWithResults
// @Router       /polls [get]
func (h *PollHandler) ListPolls(c *gin.Context) {
	viewer := viewerID(c)
	snapshots, err := h.snapshotService.GetAllPollsWithResults(c.Request.Context(), viewer)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, snapshots)
}

// GetPoll godoc
// @Summary      Get one poll with results
// @Tags         polls
// @Produce      json
// @Param        id path string true "Poll ID"
// @Success      200 {object} domain.PollWithResults
// @Failure      404 {object} map[string]string
// @Router       /polls/{id} [get]
func (h *PollHandler) GetPoll(c *gin.Context) {
	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid poll ID")
		return
	}

	snapshot, err := h.snapshotService.GetPollWithResults(c.Request.Context(), pollID, viewerID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, snapshot)
}

// CreatePoll godoc
// @Summary      Create a poll
// @Tags         polls
// @Accept       json
// @Produce      json
// @Param        request body CreatePollRequest true "Poll definition"
// @Success      201 {object} domain.Poll
// @Failure      400 {object} map[string]string
// @Router       /polls [post]
// @Security     BearerAuth
func (h *PollHandler) CreatePoll(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "User not authenticated")
		return
	}

	var req CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, err.Error())
		return
	}

	poll, err := h.pollService.CreatePoll(c.Request.Context(), userID, req.Question, req.Choices)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusCreated, poll)
}

// UpdatePoll godoc
// @Summary      Update a poll's question
// @Tags         polls
// @Accept       json
// @Produce      json
// @Param        id path string true "Poll ID"
// @Param        request body UpdatePollRequest true "New question"
// @Success      200 {object} domain.Poll
// @Router       /polls/{id} [put]
// @Security     BearerAuth
func (h *PollHandler) UpdatePoll(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "User not authenticated")
		return
	}

	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid poll ID")
		return
	}

	var req UpdatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, err.Error())
		return
	}

	poll, err := h.pollService.UpdateQuestion(c.Request.Context(), pollID, userID, isAdmin(c), req.Question)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, poll)
}

// UpdatePollStatus godoc
// @Summary      Move a poll along its lifecycle
// @Tags         polls
// @Accept       json
// @Produce      json
// @Param        id path string true "Poll ID"
// @Param        request body UpdateStatusRequest true "Target status"
// @Success      200 {object} domain.Poll
// @Router       /polls/{id}/status [patch]
// @Security     BearerAuth
func (h *PollHandler) UpdatePollStatus(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "User not authenticated")
		return
	}

	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid poll ID")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, err.Error())
		return
	}

	poll, err := h.pollService.UpdateStatus(c.Request.Context(), pollID, userID, isAdmin(c), domain.PollStatus(req.Status))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, poll)
}

// DeletePoll godoc
// @Summary      Delete a poll
// @Tags         polls
// @Param        id path string true "Poll ID"
// @Success      200 {object} map[string]bool
// @Router       /polls/{id} [delete]
// @Security     BearerAuth
func (h *PollHandler) DeletePoll(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "User not authenticated")
		return
	}

	pollID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid poll ID")
		return
	}

	if err := h.pollService.DeletePoll(c.Request.Context(), pollID, userID, isAdmin(c)); err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, gin.H{"deleted": true})
}

// RefreshPolls godoc
// @Summary      Force a full snapshot refresh
// @Description  Manual recovery path when live updates look stale
// @Tags         polls
// @Produce      json
// @Success      200 {array} domain.PollWithResults
// @Router       /polls/refresh [post]
func (h *PollHandler) RefreshPolls(c *gin.Context) {
	if err := h.feed.Refresh(c.Request.Context()); err != nil {
		handleServiceError(c, err)
		return
	}

	state, connErr := h.feed.State()
	response.SendSuccess(c, http.StatusOK, gin.H{
		"polls":            h.feed.Snapshots(),
		"connection_state": state,
		"connection_error": connErr,
	})
}

// viewerID extracts the optional authenticated identity for has-voted
// personalization
func viewerID(c *gin.Context) *uuid.UUID {
	if userID, ok := middleware.UserIDFromContext(c); ok {
		return &userID
	}
	return nil
}

func isAdmin(c *gin.Context) bool {
	val, exists := c.Get("is_admin")
	if !exists {
		return false
	}
	admin, _ := val.(bool)
	return admin
}
