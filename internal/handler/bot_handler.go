package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"poll-service/internal/response"
	"poll-service/internal/service"
)

// BotHandler exposes the simulation controls. Admin only.
type BotHandler struct {
	botService service.BotService
}

func NewBotHandler(botService service.BotService) *BotHandler {
	return &BotHandler{botService: botService}
}

type BotCountRequest struct {
	Count int `json:"count"`
}

type SimulateRequest struct {
	PollID *uuid.UUID `json:"poll_id"`
}

// CreateBots godoc
// @Summary      Provision bot profiles
// @Tags         bots
// @Accept       json
// @Produce      json
// @Param        request body BotCountRequest false "How many bots; defaults to the configured batch size"
// @Success      201 {array} domain.Profile
// @Router       /admin/bots [post]
// @Security     BearerAuth
func (h *BotHandler) CreateBots(c *gin.Context) {
	var req BotCountRequest
	// Body is optional; an empty body means the default batch size.
	_ = c.ShouldBindJSON(&req)

	bots, err := h.botService.CreateBots(c.Request.Context(), req.Count)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusCreated, bots)
}

// DeleteBots godoc
// @Summary      Delete bot profiles, newest first
// @Tags         bots
// @Accept       json
// @Produce      json
// @Param        request body BotCountRequest false "How many bots; zero deletes all"
// @Success      200 {object} map[string]int
// @Router       /admin/bots [delete]
// @Security     BearerAuth
func (h *BotHandler) DeleteBots(c *gin.Context) {
	var req BotCountRequest
	_ = c.ShouldBindJSON(&req)

	deleted, err := h.botService.DeleteBots(c.Request.Context(), req.Count)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, gin.H{"deleted": deleted})
}

// ClearBotVotes godoc
// @Summary      Delete every bot vote
// @Tags         bots
// @Produce      json
// @Success      200 {object} map[string]int64
// @Router       /admin/bots/votes [delete]
// @Security     BearerAuth
func (h *BotHandler) ClearBotVotes(c *gin.Context) {
	deleted, err := h.botService.ClearBotVotes(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, gin.H{"deleted": deleted})
}

// GetBotStats godoc
// @Summary      Bot population and vote counts
// @Tags         bots
// @Produce      json
// @Success      200 {object} service.BotStats
// @Router       /admin/bots/stats [get]
// @Security     BearerAuth
func (h *BotHandler) GetBotStats(c *gin.Context) {
	stats, err := h.botService.GetBotStats(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, stats)
}

// SimulateVoting godoc
// @Summary      Run a full voting simulation
// @Description  Every bot visits every votable poll once, in shuffled order. A poll id in the body scopes the run to that poll.
// @Tags         bots
// @Accept       json
// @Produce      json
// @Param        request body SimulateRequest false "Optional single-poll target"
// @Success      200 {object} service.SimulationReport
// @Router       /admin/bots/simulate [post]
// @Security     BearerAuth
func (h *BotHandler) SimulateVoting(c *gin.Context) {
	var req SimulateRequest
	// Body is optional; without a poll id every votable poll is visited.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
			return
		}
	}

	report, err := h.botService.SimulateVoting(c.Request.Context(), req.PollID)
	if err != nil && report == nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, report)
}

// SimulateSingleStep godoc
// @Summary      Cast at most one bot vote
// @Tags         bots
// @Produce      json
// @Success      200 {object} service.SimulationReport
// @Router       /admin/bots/simulate/step [post]
// @Security     BearerAuth
func (h *BotHandler) SimulateSingleStep(c *gin.Context) {
	report, err := h.botService.SimulateSingleStep(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, report)
}
