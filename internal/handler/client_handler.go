package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/BeygonK/Health-Information-System/internal/dto"
	"github.com/BeygonK/Health-Information-System/internal/middleware"
	"github.com/BeygonK/Health-Information-System/internal/service"
	"github.com/BeygonK/Health-Information-System/internal/validation"
	"github.com/BeygonK/Health-Information-System/pkg/response"
)

// ClientHandler exposes client endpoints.
type ClientHandler struct {
	clients   *service.ClientService
	validator *validation.Validator
}

// NewClientHandler constructs ClientHandler.
func NewClientHandler(clients *service.ClientService, validator *validation.Validator) *ClientHandler {
	if validator == nil {
		validator = validation.New()
	}
	return &ClientHandler{clients: clients, validator: validator}
}

// Register handles POST /clients.
func (h *ClientHandler) Register(c *gin.Context) {
	var req dto.RegisterClientRequest
	if err := h.validator.DecodeJSON(c.Request.Body, &req); err != nil {
		response.Error(c, err)
		return
	}
	client, err := h.clients.RegisterClient(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, client)
}

// Enroll handles POST /clients/:client_id/enroll.
func (h *ClientHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := h.validator.DecodeJSON(c.Request.Body, &req); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.clients.Enroll(c.Request.Context(), c.Param("client_id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Search handles GET /clients/search?name=.
func (h *ClientHandler) Search(c *gin.Context) {
	clients, err := h.clients.SearchClients(c.Request.Context(), c.Query("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, clients)
}

// Profile handles GET /clients/:client_id. The X-Cache header tells callers
// whether the body came from the profile cache.
func (h *ClientHandler) Profile(c *gin.Context) {
	profile, status, err := h.clients.GetClientProfile(c.Request.Context(), c.Param("client_id"), middleware.CacheBypass(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheStatus(c, string(status))
	response.OK(c, profile)
}
