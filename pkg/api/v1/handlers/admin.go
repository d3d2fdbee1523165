package handlers

import (
	"crypto/subtle"
	"strings"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/domainbrowser/searchjobs/internal/logger"
	"github.com/domainbrowser/searchjobs/internal/services"
	"github.com/domainbrowser/searchjobs/internal/types"
)

// AdminHandler handles operator requests
type AdminHandler struct {
	reaper *services.Reaper
	token  string
}

// NewAdminHandler creates a new admin handler. An empty token disables
// the admin endpoints.
func NewAdminHandler(reaper *services.Reaper, token string) *AdminHandler {
	return &AdminHandler{
		reaper: reaper,
		token:  token,
	}
}

// Cleanup runs a retention sweep and returns its report
func (h *AdminHandler) Cleanup(c *fiber.Ctx) error {
	if h.token == "" {
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(types.UnavailableResponse(ErrMsgCleanupDisabled))
	}
	if !h.authorized(c.Get(fiber.HeaderAuthorization)) {
		logger.WarnWithFields("Rejected cleanup request", map[string]interface{}{"ip": c.IP()})
		return c.Status(fiber.StatusUnauthorized).
			JSON(types.UnauthorizedResponse(ErrMsgUnauthorized))
	}

	report := h.reaper.Sweep(c.Context())
	return c.JSON(types.Success(report))
}

func (h *AdminHandler) authorized(header string) bool {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) == 1
}
