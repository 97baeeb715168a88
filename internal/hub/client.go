package hub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/tanishk-sarode/codechill-v2/internal/collab"
	"github.com/tanishk-sarode/codechill-v2/internal/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Must fit a full document
	// replacement plus envelope overhead.
	maxMessageSize = 512 * 1024

	// Outbound buffer depth per connection.
	sendBuffer = 256

	// Deadline for one coordinator request on behalf of this client.
	requestTimeout = 10 * time.Second
)

// Client is one authenticated WebSocket connection. It implements
// collab.Sender; the coordinator delivers room events through Send while
// the read pump feeds client requests the other way.
type Client struct {
	coordinator *collab.Coordinator
	conn        *websocket.Conn

	userID      string
	userName    string
	userPicture string

	// currentRoom is written only by the read pump goroutine.
	currentRoom string

	// initialRoom, when set, is joined before the read loop starts, so a
	// connection to a room URL needs no separate join_room frame.
	initialRoom     string
	initialPassword string

	send chan []byte
	log  *logrus.Entry
}

// NewClient wraps an upgraded connection for the given user. A non-empty
// roomID makes the client join that room as soon as its pumps start;
// password applies to that initial join only.
func NewClient(coordinator *collab.Coordinator, conn *websocket.Conn, user *domain.User, roomID, password string) *Client {
	return &Client{
		coordinator:     coordinator,
		conn:            conn,
		userID:          user.ID,
		userName:        user.Name,
		userPicture:     user.Picture,
		initialRoom:     roomID,
		initialPassword: password,
		send:            make(chan []byte, sendBuffer),
		log: logrus.WithFields(logrus.Fields{
			"component": "ws_client",
			"user_id":   user.ID,
		}),
	}
}

// Run starts the read and write pumps. It returns when the connection is
// gone and the client has left its room.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// Send queues an event for delivery. It never blocks: a full buffer means
// the connection is too slow and the event is dropped, reported by the
// false return.
func (c *Client) Send(ev collab.Event) bool {
	frame, err := EncodeEvent(ev)
	if err != nil {
		c.log.WithError(err).Error("Failed to encode outbound event")
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		if c.currentRoom != "" {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			if err := c.coordinator.Leave(ctx, c.currentRoom, c.userID); err != nil {
				c.log.WithError(err).Warn("Failed to leave room on disconnect")
			}
			cancel()
		}
		c.conn.Close()
		c.log.Debug("Read pump exited")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	if c.initialRoom != "" {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		c.handleJoin(ctx, JoinRoomRequest{RoomID: c.initialRoom, Password: c.initialPassword})
		cancel()
	}

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("WebSocket read error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.sendError("malformed message")
			continue
		}
		c.handleInbound(env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug("Write pump exited")
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleInbound runs on the read pump goroutine, so requests from one
// connection are handled one at a time in arrival order.
func (c *Client) handleInbound(env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch env.Event {
	case EventJoinRoom:
		var req JoinRoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.RoomID == "" {
			c.sendError("malformed join_room payload")
			return
		}
		c.handleJoin(ctx, req)

	case EventLeaveRoom:
		if c.currentRoom == "" {
			return
		}
		if err := c.coordinator.Leave(ctx, c.currentRoom, c.userID); err != nil {
			c.log.WithError(err).Warn("Leave request failed")
		}
		c.currentRoom = ""

	case EventCodeChange:
		var req CodeChangeRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.sendError("malformed code_change payload")
			return
		}
		ev, err := c.coordinator.ProposeChange(ctx, c.currentRoom, c.userID, collab.Proposal{
			Content:     req.Content,
			BaseVersion: req.Version,
			Cursor:      req.CursorPosition,
		})
		if err != nil {
			c.sendError(userMessage(err))
			return
		}
		c.reply(ev)

	case EventCursorUpdate:
		var req CursorUpdateRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.sendError("malformed cursor_update payload")
			return
		}
		if err := c.coordinator.UpdateCursor(ctx, c.currentRoom, c.userID, req.CursorPosition, req.Selection); err != nil {
			c.sendError(userMessage(err))
		}

	case EventSendMessage:
		var req SendMessageRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.sendError("malformed send_message payload")
			return
		}
		if req.Type == "" {
			req.Type = domain.MessageTypeText
		}
		if req.Content == "" || len(req.Content) > domain.MaxMessageLength {
			c.sendError("message content must be 1-2000 characters")
			return
		}
		if !domain.IsValidMessageType(req.Type) {
			c.sendError("invalid message type")
			return
		}
		if err := c.coordinator.PostMessage(ctx, c.currentRoom, c.userID, req.Content, req.Type); err != nil {
			c.sendError(userMessage(err))
		}

	case EventExecuteCode:
		var req ExecuteCodeRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.sendError("malformed execute_code payload")
			return
		}
		if !domain.IsSupportedLanguage(req.Language) {
			c.sendError("unsupported language")
			return
		}
		if req.SourceCode == "" || len(req.SourceCode) > domain.MaxSourceLength {
			c.sendError("source code must be non-empty and at most 64KB")
			return
		}
		ev, err := c.coordinator.RequestExecution(ctx, c.currentRoom, c.userID, req.Language, req.SourceCode, req.Input)
		if err != nil {
			c.sendError(userMessage(err))
			return
		}
		c.reply(ev)

	case EventGetRoomState:
		var req GetRoomStateRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.sendError("malformed get_room_state payload")
			return
		}
		roomID := req.RoomID
		if roomID == "" {
			roomID = c.currentRoom
		}
		if roomID == "" {
			c.sendError("room_id is required")
			return
		}
		state, err := c.coordinator.RoomState(ctx, roomID)
		if err != nil {
			c.sendError(userMessage(err))
			return
		}
		c.reply(state)

	default:
		c.sendError("unknown event: " + env.Event)
	}
}

func (c *Client) handleJoin(ctx context.Context, req JoinRoomRequest) {
	if c.currentRoom != "" && c.currentRoom != req.RoomID {
		if err := c.coordinator.Leave(ctx, c.currentRoom, c.userID); err != nil {
			c.log.WithError(err).Warn("Failed to leave previous room")
		}
		c.currentRoom = ""
	}

	joined, err := c.coordinator.Join(ctx, collab.JoinRequest{
		RoomID:   req.RoomID,
		UserID:   c.userID,
		Name:     c.userName,
		Picture:  c.userPicture,
		Password: req.Password,
		Sender:   c,
	})
	if err != nil {
		c.sendError(userMessage(err))
		return
	}
	c.currentRoom = req.RoomID
	c.reply(joined)
}

// reply sends a request-scoped event back to this client only.
func (c *Client) reply(ev collab.Event) {
	if !c.Send(ev) {
		c.log.WithField("event", ev.EventName()).Warn("Send buffer full, reply dropped")
	}
}

func (c *Client) sendError(message string) {
	c.reply(ErrorEvent{Message: message})
}

// userMessage maps coordinator errors to client-facing text.
func userMessage(err error) string {
	switch {
	case errors.Is(err, collab.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, collab.ErrRoomFull):
		return "room is full"
	case errors.Is(err, collab.ErrInvalidPassword):
		return "invalid room password"
	case errors.Is(err, collab.ErrNotInRoom):
		return "join a room first"
	case errors.Is(err, collab.ErrExecutionUnavailable):
		return "code execution is temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return "internal error"
	}
}
