package handler

import (
	"temporalos-be/internal/pkg/logger"
	"temporalos-be/internal/pkg/serverutils"
	"temporalos-be/internal/service"
	internalWS "temporalos-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ModeStreamHandler streams a session's mode snapshots over a websocket.
type ModeStreamHandler struct {
	modes     service.IModeService
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewModeStreamHandler(modes service.IModeService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *ModeStreamHandler {
	return &ModeStreamHandler{modes: modes, hub: hub, jwtSecret: jwtSecret, logger: log}
}

// ServeWs authenticates the handshake, then hands the connection to the hub.
func (h *ModeStreamHandler) ServeWs(c *fiber.Ctx) error {
	if h.jwtSecret != "" {
		// Browsers cannot set headers on a websocket handshake, so the query wins.
		tokenStr := c.Query("token")
		if tokenStr == "" {
			tokenStr = serverutils.BearerToken(c)
		}
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (query 'token' or Authorization header)"))
		}
		if _, err := serverutils.ParseClinicianToken(h.jwtSecret, tokenStr); err != nil {
			h.logger.Warn("MODE_STREAM", "Invalid token in websocket handshake", map[string]interface{}{"error": err.Error()})
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}
	}

	sessionID := c.Params("sessionId")
	current, err := h.modes.Get(sessionID)
	if err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("MODE_STREAM", "Starting websocket session", map[string]interface{}{"session_id": sessionID})
		internalWS.ServeWs(h.hub, conn, sessionID, current)
		h.logger.Info("MODE_STREAM", "Websocket session ended", map[string]interface{}{"session_id": sessionID})
	})(c)
}

func (h *ModeStreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/mode/:sessionId/ws", h.ServeWs)
}
