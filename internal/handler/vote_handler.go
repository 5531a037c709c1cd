package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"poll-service/internal/middleware"
	"poll-service/internal/response"
	"poll-service/internal/service"
)

type VoteHandler struct {
	voteService service.VoteService
}

func NewVoteHandler(voteService service.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

type CastVoteRequest struct {
	Choice string `json:"choice" binding:"required"`
}

// CastVote godoc
// @Summary      Cast a vote
// @Description  Records one vote per user per poll; a second vote is a conflict
// @Tags         votes
// @Accept       json
// @Produce      json
// @Param        id path string true "Poll ID"
// @Param        request body CastVoteRequest true "Chosen option"
// @Success      201 {object} domain.Vote
// @Failure      409 {object} map[string]string
// @Router       /polls/{id}/votes [post]
// @Security     BearerAuth
func (h *VoteHandler) CastVote(c *gin.Context) {
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

	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, err.Error())
		return
	}

	vote, err := h.voteService.CastVote(c.Request.Context(), pollID, userID, req.Choice)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusCreated, vote)
}

// RetractVote godoc
// @Summary      Retract the caller's vote
// @Tags         votes
// @Param        id path string true "Poll ID"
// @Success      200 {object} map[string]bool
// @Failure      404 {object} map[string]string
// @Router       /polls/{id}/votes [delete]
// @Security     BearerAuth
func (h *VoteHandler) RetractVote(c *gin.Context) {
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

	if err := h.voteService.RetractVote(c.Request.Context(), pollID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, gin.H{"retracted": true})
}
