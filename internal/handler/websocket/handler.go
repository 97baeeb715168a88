// Package websocket upgrades authenticated connections and hands them to
// the hub client.
package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/tanishk-sarode/codechill-v2/internal/collab"
	"github.com/tanishk-sarode/codechill-v2/internal/hub"
	"github.com/tanishk-sarode/codechill-v2/internal/middleware"
	"github.com/tanishk-sarode/codechill-v2/internal/service"
)

// WebSocketHandler handles the upgrade at /ws/rooms/:id.
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	coordinator *collab.Coordinator
	authService *service.AuthService
	roomService *service.RoomService
}

func NewWebSocketHandler(coordinator *collab.Coordinator, authService *service.AuthService, roomService *service.RoomService, allowedOrigin string) *WebSocketHandler {
	if coordinator == nil {
		panic("Coordinator cannot be nil for WebSocketHandler")
	}
	if authService == nil || roomService == nil {
		panic("services cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" || allowedOrigin == "*" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return &WebSocketHandler{
		upgrader:    upgrader,
		coordinator: coordinator,
		authService: authService,
		roomService: roomService,
	}
}

// HandleConnection validates the user and room, upgrades the connection,
// and runs the client until it disconnects. The initial room join happens
// inside the client; a private room's password travels in the join frame
// or the "password" query parameter.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		logCtx.WithError(err).Warn("WS Handler: failed to load user")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
		return
	}

	roomID := c.Param("id")
	if roomID != "" {
		if _, err := h.roomService.GetRoom(c.Request.Context(), roomID); err != nil {
			logCtx.WithField("room_id", roomID).Warn("WS Handler: room not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logCtx.WithError(err).Error("WS Handler: failed to upgrade connection")
		return
	}
	logCtx.WithField("room_id", roomID).Info("WS Handler: connection upgraded")

	client := hub.NewClient(h.coordinator, conn, user, roomID, c.Query("password"))
	go client.Run()
}
