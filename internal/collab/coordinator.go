// Package collab implements the room synchronization core: a session
// registry, per-room authoritative document state, an optimistic-
// concurrency conflict resolver, and a coordinator that serializes every
// operation touching a room into a single total order.
package collab

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
	"github.com/tanishk-sarode/codechill-v2/internal/repository"
)

// TaskQueue is the background queue the coordinator hands write-behind
// work to: document persistence, chat persistence, and execution dispatch.
// Failures to enqueue persistence are logged, not surfaced: the in-memory
// state stays authoritative and a later accept re-enqueues a newer
// version. Failures to enqueue an execution do surface, because nothing
// would ever run the job.
type TaskQueue interface {
	EnqueueDocumentPersist(ctx context.Context, roomID, content string, version uint64, at time.Time) error
	EnqueueChatPersist(ctx context.Context, msg domain.ChatMessage) error
	EnqueueExecution(ctx context.Context, executionID string) error
}

// opBuffer is the per-room mailbox depth. Ops beyond it block the caller
// (with its context) rather than being dropped.
const opBuffer = 256

// Coordinator owns one actor per active room. All operations targeting a
// room are funneled through that room's actor goroutine, which drains its
// mailbox strictly sequentially; operations on different rooms proceed in
// parallel with no cross-room coordination.
type Coordinator struct {
	registry *Registry
	roomRepo repository.RoomRepository
	msgRepo  repository.MessageRepository
	execRepo repository.ExecutionRepository
	state    repository.StateRepository
	queue    TaskQueue
	log      *logrus.Entry

	actorsMu sync.Mutex
	actors   map[string]*roomActor
}

// JoinRequest carries everything a join needs. Sender is the participant's
// connection; the coordinator holds it only as long as the membership
// entry lives.
type JoinRequest struct {
	RoomID   string
	UserID   string
	Name     string
	Picture  string
	Password string
	Sender   Sender
}

// NewCoordinator wires a coordinator. All dependencies are required.
func NewCoordinator(
	roomRepo repository.RoomRepository,
	msgRepo repository.MessageRepository,
	execRepo repository.ExecutionRepository,
	state repository.StateRepository,
	queue TaskQueue,
	logger *logrus.Logger,
) *Coordinator {
	if roomRepo == nil || msgRepo == nil || execRepo == nil || state == nil || queue == nil {
		panic("all dependencies must be non-nil for Coordinator")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Coordinator{
		registry: NewRegistry(),
		roomRepo: roomRepo,
		msgRepo:  msgRepo,
		execRepo: execRepo,
		state:    state,
		queue:    queue,
		log:      logger.WithField("component", "coordinator"),
		actors:   make(map[string]*roomActor),
	}
}

// Registry exposes the membership bookkeeping (read-only use outside the
// coordinator: worker cleanup, metrics).
func (c *Coordinator) Registry() *Registry { return c.registry }

// roomActor owns one room's mutable state. Its run loop executes queued
// operations one at a time, which is what makes version checks and fan-out
// ordering race-free without any per-field locking.
type roomActor struct {
	id      string
	ops     chan func()
	stop    chan struct{}
	room    *domain.Room
	doc     *Document
	senders map[string]Sender
}

func (a *roomActor) run() {
	for {
		select {
		case op := <-a.ops:
			op()
		case <-a.stop:
			// Drain anything already queued, then exit. An op submitted
			// after the drain blocks its caller until the context expires;
			// by then the actor is gone from the map so retries rehydrate.
			for {
				select {
				case op := <-a.ops:
					op()
				default:
					return
				}
			}
		}
	}
}

// do runs fn inside the actor and waits for it to finish. The context
// bounds both the wait for mailbox space and the wait for completion, so
// a join stuck behind a slow external call times out cleanly for the
// caller while the room's total order is preserved.
func (a *roomActor) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case a.ops <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// actor returns the live actor for roomID, hydrating room metadata and
// document state from the repository on first activation.
func (c *Coordinator) actor(ctx context.Context, roomID string) (*roomActor, error) {
	c.actorsMu.Lock()
	if a, ok := c.actors[roomID]; ok {
		c.actorsMu.Unlock()
		return a, nil
	}
	c.actorsMu.Unlock()

	room, err := c.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		c.log.WithError(err).WithField("room_id", roomID).Error("Failed to load room")
		return nil, ErrInternal
	}
	if !room.IsActive {
		return nil, ErrRoomNotFound
	}

	c.actorsMu.Lock()
	defer c.actorsMu.Unlock()
	if a, ok := c.actors[roomID]; ok {
		// Lost the hydration race; the winner's state is authoritative.
		return a, nil
	}
	a := &roomActor{
		id:      roomID,
		ops:     make(chan func(), opBuffer),
		stop:    make(chan struct{}),
		room:    room,
		doc:     NewDocument(room.Content, room.ContentVersion),
		senders: make(map[string]Sender),
	}
	c.actors[roomID] = a
	c.registry.Register(roomID)
	go a.run()
	c.log.WithFields(logrus.Fields{"room_id": roomID, "version": room.ContentVersion}).Info("Room activated")
	return a, nil
}

// lookup returns the actor only if the room is already active.
func (c *Coordinator) lookup(roomID string) (*roomActor, bool) {
	c.actorsMu.Lock()
	defer c.actorsMu.Unlock()
	a, ok := c.actors[roomID]
	return a, ok
}

// Join admits a participant: password check for private rooms, capacity
// check, membership registration, and a user_joined fan-out to the other
// members. The reply carries the full current state so a late joiner gets
// consistent content and roster. Join runs through the same serialization
// point as edits, so no accepted change can slip between the snapshot and
// the registration.
func (c *Coordinator) Join(ctx context.Context, req JoinRequest) (*RoomJoined, error) {
	a, err := c.actor(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	var (
		res   *RoomJoined
		opErr error
	)
	err = a.do(ctx, func() {
		res, opErr = c.join(a, req)
	})
	if err != nil {
		return nil, err
	}
	return res, opErr
}

func (c *Coordinator) join(a *roomActor, req JoinRequest) (*RoomJoined, error) {
	logCtx := c.log.WithFields(logrus.Fields{"room_id": a.id, "user_id": req.UserID})

	if a.room.IsPrivate {
		if bcrypt.CompareHashAndPassword([]byte(a.room.PasswordHash), []byte(req.Password)) != nil {
			logCtx.Warn("Join rejected: invalid password")
			return nil, ErrInvalidPassword
		}
	}

	role := domain.RoleParticipant
	if req.UserID == a.room.OwnerID {
		role = domain.RoleOwner
	}
	p := &domain.Participant{
		UserID:   req.UserID,
		Name:     req.Name,
		Picture:  req.Picture,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}

	replaced, err := c.registry.AddParticipant(a.id, p, a.room.MaxParticipants)
	if err != nil {
		logCtx.Warn("Join rejected: room full")
		return nil, err
	}
	a.senders[req.UserID] = req.Sender

	if !replaced {
		a.broadcast(UserJoined{
			UserID:      req.UserID,
			UserName:    req.Name,
			UserPicture: req.Picture,
			RoomID:      a.id,
		}, req.UserID)
	}

	a.room.LastActivity = time.Now().UTC()
	c.touchActivity(a.id, a.room.LastActivity)

	content, version := a.doc.Snapshot()
	roomCopy := *a.room
	logCtx.WithField("replaced", replaced).Info("Participant joined")
	return &RoomJoined{
		RoomID:         a.id,
		Room:           &roomCopy,
		CurrentContent: content,
		ContentVersion: version,
		Participants:   c.registry.ListParticipants(a.id),
	}, nil
}

// Leave removes a participant and fans user_left to the remaining members.
// Idempotent: a second leave (or a disconnect racing an explicit leave)
// produces no second fan-out.
func (c *Coordinator) Leave(ctx context.Context, roomID, userID string) error {
	a, ok := c.lookup(roomID)
	if !ok {
		return nil
	}
	return a.do(ctx, func() {
		p, _ := c.registry.Get(roomID, userID)
		if !c.registry.RemoveParticipant(roomID, userID) {
			return
		}
		delete(a.senders, userID)
		a.broadcast(UserLeft{
			UserID:      userID,
			UserName:    p.Name,
			UserPicture: p.Picture,
			RoomID:      roomID,
		}, userID)
		a.room.LastActivity = time.Now().UTC()
		c.touchActivity(roomID, a.room.LastActivity)
		c.log.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "remaining": c.registry.Count(roomID)}).Info("Participant left")
	})
}

// ProposeChange resolves a change proposal against the document. On
// acceptance the new state is fanned out to everyone except the author and
// the ack is returned to the author; on conflict only the author learns,
// receiving the authoritative state for rebase.
func (c *Coordinator) ProposeChange(ctx context.Context, roomID, userID string, p Proposal) (Event, error) {
	a, ok := c.lookup(roomID)
	if !ok {
		return nil, ErrNotInRoom
	}
	var res Event
	var opErr error
	err := a.do(ctx, func() {
		if _, in := a.senders[userID]; !in {
			opErr = ErrNotInRoom
			return
		}
		p.AuthorID = userID
		resolution := Resolve(a.doc, p)
		if !resolution.Accepted {
			c.log.WithFields(logrus.Fields{
				"room_id":      roomID,
				"user_id":      userID,
				"base_version": p.BaseVersion,
				"version":      resolution.CurrentVersion,
			}).Debug("Change proposal conflicted")
			res = CodeConflict{
				CurrentContent: resolution.CurrentContent,
				CurrentVersion: resolution.CurrentVersion,
			}
			return
		}

		if p.Cursor != nil {
			c.registry.UpdateCursor(roomID, userID, *p.Cursor, nil)
		}
		now := time.Now().UTC()
		a.room.LastActivity = now
		a.room.Content = p.Content
		a.room.ContentVersion = resolution.NewVersion

		a.broadcast(CodeUpdated{
			Content:        p.Content,
			Version:        resolution.NewVersion,
			UserID:         userID,
			CursorPosition: p.Cursor,
		}, userID)

		if err := c.queue.EnqueueDocumentPersist(ctx, roomID, p.Content, resolution.NewVersion, now); err != nil {
			c.log.WithError(err).WithField("room_id", roomID).Error("Failed to enqueue document persistence")
		}
		if err := c.state.SetDocumentCache(ctx, roomID, p.Content, resolution.NewVersion, time.Hour); err != nil {
			c.log.WithError(err).WithField("room_id", roomID).Warn("Failed to update document cache")
		}
		res = CodeChangeAck{Version: resolution.NewVersion, Success: true}
	})
	if err != nil {
		return nil, err
	}
	return res, opErr
}

// UpdateCursor mutates the participant's own cursor entry and fans a
// lightweight cursor_moved to the others. It never touches the document or
// its version: presence is best effort.
func (c *Coordinator) UpdateCursor(ctx context.Context, roomID, userID string, pos domain.CursorPosition, sel *domain.SelectionRange) error {
	a, ok := c.lookup(roomID)
	if !ok {
		return ErrNotInRoom
	}
	var opErr error
	err := a.do(ctx, func() {
		if !c.registry.UpdateCursor(roomID, userID, pos, sel) {
			opErr = ErrNotInRoom
			return
		}
		a.broadcast(CursorMoved{UserID: userID, CursorPosition: pos, Selection: sel}, userID)
	})
	if err != nil {
		return err
	}
	return opErr
}

// PostMessage appends a chat message (ordering defined by arrival at this
// coordinator) and fans it out to all participants including the sender,
// so every client renders the same echo.
func (c *Coordinator) PostMessage(ctx context.Context, roomID, userID, content, msgType string) error {
	a, ok := c.lookup(roomID)
	if !ok {
		return ErrNotInRoom
	}
	var opErr error
	err := a.do(ctx, func() {
		p, in := c.registry.Get(roomID, userID)
		if !in {
			opErr = ErrNotInRoom
			return
		}
		msg := domain.ChatMessage{
			ID:            uuid.NewString(),
			RoomID:        roomID,
			AuthorID:      userID,
			AuthorName:    p.Name,
			AuthorPicture: p.Picture,
			Content:       content,
			Type:          msgType,
			CreatedAt:     time.Now().UTC(),
		}
		a.room.LastActivity = msg.CreatedAt

		a.broadcast(NewMessage{ChatMessage: msg}, "")

		if err := c.queue.EnqueueChatPersist(ctx, msg); err != nil {
			c.log.WithError(err).WithField("room_id", roomID).Error("Failed to enqueue chat persistence")
		}
		if err := c.state.PushRecentMessage(ctx, roomID, msg); err != nil {
			c.log.WithError(err).WithField("room_id", roomID).Warn("Failed to cache chat message")
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// RequestExecution records an execution job, announces it to the room, and
// hands it to the background queue for the remote runner. The reply is the
// requester's ack; status transitions come back through ReportExecution.
func (c *Coordinator) RequestExecution(ctx context.Context, roomID, userID, language, sourceCode, input string) (*ExecutionQueued, error) {
	a, ok := c.lookup(roomID)
	if !ok {
		return nil, ErrNotInRoom
	}
	var (
		res   *ExecutionQueued
		opErr error
	)
	err := a.do(ctx, func() {
		if _, in := a.senders[userID]; !in {
			opErr = ErrNotInRoom
			return
		}
		exec := &domain.Execution{
			ID:          uuid.NewString(),
			RoomID:      roomID,
			RequesterID: userID,
			Language:    language,
			SourceCode:  sourceCode,
			Input:       input,
			Status:      domain.ExecutionQueued,
			CreatedAt:   time.Now().UTC(),
		}
		if err := c.execRepo.Save(ctx, exec); err != nil {
			c.log.WithError(err).WithField("room_id", roomID).Error("Failed to save execution record")
			opErr = ErrInternal
			return
		}
		if err := c.queue.EnqueueExecution(ctx, exec.ID); err != nil {
			c.log.WithError(err).WithField("execution_id", exec.ID).Error("Failed to enqueue execution")
			opErr = ErrExecutionUnavailable
			return
		}
		a.room.LastActivity = exec.CreatedAt

		a.broadcast(ExecutionStarted{
			ExecutionID: exec.ID,
			UserID:      userID,
			Language:    language,
		}, "")
		res = &ExecutionQueued{ExecutionID: exec.ID, Message: "Execution queued"}
	})
	if err != nil {
		return nil, err
	}
	return res, opErr
}

// ReportExecution relays a terminal status transition from the execution
// worker to the room. A report for a room with no live actor is dropped:
// there is nobody left to tell, and the record is already persisted.
func (c *Coordinator) ReportExecution(ctx context.Context, roomID string, ev ExecutionFinished) error {
	a, ok := c.lookup(roomID)
	if !ok {
		c.log.WithFields(logrus.Fields{"room_id": roomID, "execution_id": ev.ExecutionID}).Debug("Dropping execution report for inactive room")
		return nil
	}
	return a.do(ctx, func() {
		a.broadcast(ev, "")
	})
}

// RoomState returns the full snapshot: room metadata, document, roster,
// and the recent chat window. For an active room the room/document/roster
// triple is read atomically inside the actor; the chat window is fetched
// outside it (cache first, then database) and tolerates staleness.
func (c *Coordinator) RoomState(ctx context.Context, roomID string) (*RoomState, error) {
	var snapshot *RoomState
	if a, ok := c.lookup(roomID); ok {
		err := a.do(ctx, func() {
			content, version := a.doc.Snapshot()
			roomCopy := *a.room
			snapshot = &RoomState{
				Room:         &roomCopy,
				Content:      content,
				Version:      version,
				Participants: c.registry.ListParticipants(roomID),
			}
		})
		if err != nil {
			return nil, err
		}
	} else {
		room, err := c.roomRepo.FindByID(ctx, roomID)
		if err != nil {
			if errors.Is(err, repository.ErrRoomNotFound) {
				return nil, ErrRoomNotFound
			}
			return nil, ErrInternal
		}
		if !room.IsActive {
			return nil, ErrRoomNotFound
		}
		snapshot = &RoomState{
			Room:    room,
			Content: room.Content,
			Version: room.ContentVersion,
		}
	}

	msgs, err := c.state.GetRecentMessages(ctx, roomID, recentMessageWindow)
	if err != nil {
		msgs, err = c.msgRepo.ListRecent(ctx, roomID, recentMessageWindow)
		if err != nil {
			c.log.WithError(err).WithField("room_id", roomID).Warn("Failed to load recent messages")
			msgs = nil
		}
	}
	snapshot.RecentMessages = msgs
	return snapshot, nil
}

// recentMessageWindow is the chat history depth returned in room_state.
const recentMessageWindow = 50

// DeactivateRoom stops an idle room's actor and drops its registry entry.
// Used by the cleanup worker after flipping is_active in the database; a
// room with live participants is left alone.
func (c *Coordinator) DeactivateRoom(roomID string) {
	if c.registry.Count(roomID) > 0 {
		return
	}
	c.actorsMu.Lock()
	a, ok := c.actors[roomID]
	if ok {
		delete(c.actors, roomID)
		close(a.stop)
	}
	c.actorsMu.Unlock()
	c.registry.Drop(roomID)
	if ok {
		c.log.WithField("room_id", roomID).Info("Room deactivated")
	}
}

// touchActivity persists last_activity off the actor's critical path.
func (c *Coordinator) touchActivity(roomID string, at time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.roomRepo.TouchActivity(ctx, roomID, at); err != nil {
			c.log.WithError(err).WithField("room_id", roomID).Warn("Failed to persist room activity")
		}
	}()
}

// broadcast delivers ev to every participant except the one named. An
// empty except delivers to everyone. Slow clients are skipped, not waited
// on; their write pump handles the fallout.
func (a *roomActor) broadcast(ev Event, except string) {
	for userID, s := range a.senders {
		if userID == except {
			continue
		}
		if !s.Send(ev) {
			logrus.WithFields(logrus.Fields{
				"room_id": a.id,
				"user_id": userID,
				"event":   ev.EventName(),
			}).Warn("Participant send buffer full, event dropped")
		}
	}
}
