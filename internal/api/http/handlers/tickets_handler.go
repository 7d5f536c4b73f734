package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-bot/internal/api/dto"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/service"
)

// TicketsHandler serves the operator ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /admin/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.List(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /admin/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	history, err := h.service.History(c.UserContext(), ticket.TicketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history)})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	for _, part := range splitQuery(c.Query("status")) {
		if status := domain.TicketStatus(strings.ToUpper(part)); status.Valid() {
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	for _, part := range splitQuery(c.Query("request_type")) {
		if rt, ok := domain.ParseRequestType(part); ok {
			filter.RequestTypes = append(filter.RequestTypes, rt)
		}
	}
	if requester := c.Query("requester"); requester != "" {
		filter.RequesterObjectID = &requester
	}
	if assignee := c.Query("assignee"); assignee != "" {
		filter.AssignedToObjectID = &assignee
	}
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		filter.SearchTerm = &term
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func splitQuery(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
