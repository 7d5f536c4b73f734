package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-bot/internal/api/dto"
	"github.com/spec-kit/helpdesk-bot/internal/service"
)

// RosterHandler serves the operator roster endpoint.
type RosterHandler struct {
	service *service.RosterService
}

// NewRosterHandler constructs handler.
func NewRosterHandler(rosterService *service.RosterService) *RosterHandler {
	return &RosterHandler{service: rosterService}
}

// GetRoster GET /admin/roster/:teamId.
func (h *RosterHandler) GetRoster(c *fiber.Ctx) error {
	snapshot, err := h.service.Snapshot(c.UserContext(), c.Params("teamId"))
	if err != nil {
		return err
	}
	resp := dto.RosterSnapshotResponse{
		Current: rosterResponse(snapshot[0]),
		History: make([]dto.RosterResponse, 0, len(snapshot)-1),
	}
	for _, roster := range snapshot[1:] {
		resp.History = append(resp.History, rosterResponse(roster))
	}
	return c.JSON(fiber.Map{"data": resp})
}
