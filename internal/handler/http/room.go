package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tanishk-sarode/codechill-v2/internal/middleware"
	"github.com/tanishk-sarode/codechill-v2/internal/service"
)

// RoomHandler exposes room creation and discovery.
type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

type CreateRoomRequest struct {
	Name            string `json:"name" binding:"required,min=1,max=100"`
	Description     string `json:"description" binding:"omitempty,max=500"`
	Language        string `json:"language" binding:"omitempty"`
	IsPrivate       bool   `json:"is_private"`
	Password        string `json:"password" binding:"omitempty,min=4"`
	MaxParticipants int    `json:"max_participants" binding:"omitempty,min=2,max=50"`
}

func (h *RoomHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateRoom: invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID, service.CreateRoomInput{
		Name:            req.Name,
		Description:     req.Description,
		Language:        req.Language,
		IsPrivate:       req.IsPrivate,
		Password:        req.Password,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, room)
}

// List returns active public rooms. Optional query parameters: search,
// language, limit.
func (h *RoomHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	search := c.Query("search")
	language := c.Query("language")

	rooms, err := h.roomService.SearchRooms(c.Request.Context(), search, language, limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"rooms": rooms, "count": len(rooms)})
}

// Trending returns the most recently active public rooms.
func (h *RoomHandler) Trending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	rooms, err := h.roomService.TrendingRooms(c.Request.Context(), limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"rooms": rooms, "count": len(rooms)})
}

// Get returns one room's metadata.
func (h *RoomHandler) Get(c *gin.Context) {
	roomID := c.Param("id")
	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}
