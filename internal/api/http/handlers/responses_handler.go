package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/customer-care/internal/api/dto"
	"github.com/spec-kit/customer-care/internal/auth"
	"github.com/spec-kit/customer-care/internal/domain"
	"github.com/spec-kit/customer-care/internal/service"
	apperrors "github.com/spec-kit/customer-care/pkg/util"
)

// ResponsesHandler manages ticket response endpoints.
type ResponsesHandler struct {
	service *service.ResponseService
}

// NewResponsesHandler constructs handler.
func NewResponsesHandler(responseService *service.ResponseService) *ResponsesHandler {
	return &ResponsesHandler{service: responseService}
}

// ListTicketResponses GET /tickets/:id/responses.
func (h *ResponsesHandler) ListTicketResponses(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	responses, err := h.service.ListTicketResponses(c.UserContext(), principal.Caller(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ResponseResponse, 0, len(responses))
	for i := range responses {
		items = append(items, responseResponse(&responses[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateResponse POST /responses.
func (h *ResponsesHandler) CreateResponse(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == "" || strings.TrimSpace(req.Content) == "" {
		return apperrors.NewValidationError("ticket_id and content required", nil)
	}

	response, err := h.service.CreateResponse(c.UserContext(), principal.Caller(), req.TicketID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": responseResponse(response)})
}

// GetResponse GET /responses/:id.
func (h *ResponsesHandler) GetResponse(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	response, err := h.service.GetResponse(c.UserContext(), principal.Caller(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": responseResponse(response)})
}

// UpdateResponse PUT /responses/:id.
func (h *ResponsesHandler) UpdateResponse(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Content) == "" {
		return apperrors.NewValidationError("content required", nil)
	}

	response, err := h.service.UpdateResponse(c.UserContext(), principal.Caller(), c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": responseResponse(response)})
}

// DeleteResponse DELETE /responses/:id.
func (h *ResponsesHandler) DeleteResponse(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteResponse(c.UserContext(), principal.Caller(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "response deleted"})
}

func responseResponse(response *domain.Response) dto.ResponseResponse {
	return dto.ResponseResponse{
		ID:        response.ID,
		TicketID:  response.TicketID,
		AuthorID:  response.AuthorID,
		Content:   response.Content,
		CreatedAt: response.CreatedAt,
		UpdatedAt: response.UpdatedAt,
	}
}
