package collab_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tanishk-sarode/codechill-v2/internal/collab"
	"github.com/tanishk-sarode/codechill-v2/internal/domain"
	"github.com/tanishk-sarode/codechill-v2/internal/repository"
	"github.com/tanishk-sarode/codechill-v2/internal/repository/mocks"
)

// fakeSender records the events delivered to one participant.
type fakeSender struct {
	mu     sync.Mutex
	events []collab.Event
	full   bool
}

func (s *fakeSender) Send(ev collab.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.events = append(s.events, ev)
	return true
}

func (s *fakeSender) byName(name string) []collab.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []collab.Event
	for _, ev := range s.events {
		if ev.EventName() == name {
			out = append(out, ev)
		}
	}
	return out
}

// fakeQueue records enqueued background work.
type fakeQueue struct {
	mu            sync.Mutex
	documents     []string
	docVersions   []uint64
	chats         []domain.ChatMessage
	executions    []string
	failExecution bool
}

func (q *fakeQueue) EnqueueDocumentPersist(ctx context.Context, roomID, content string, version uint64, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.documents = append(q.documents, content)
	q.docVersions = append(q.docVersions, version)
	return nil
}

func (q *fakeQueue) EnqueueChatPersist(ctx context.Context, msg domain.ChatMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.chats = append(q.chats, msg)
	return nil
}

func (q *fakeQueue) EnqueueExecution(ctx context.Context, executionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failExecution {
		return errors.New("queue unavailable")
	}
	q.executions = append(q.executions, executionID)
	return nil
}

type testEnv struct {
	coordinator *collab.Coordinator
	roomRepo    *mocks.RoomRepository
	msgRepo     *mocks.MessageRepository
	execRepo    *mocks.ExecutionRepository
	state       *mocks.StateRepository
	queue       *fakeQueue
}

func newTestEnv(t *testing.T, room *domain.Room) *testEnv {
	t.Helper()

	roomRepo := new(mocks.RoomRepository)
	msgRepo := new(mocks.MessageRepository)
	execRepo := new(mocks.ExecutionRepository)
	state := new(mocks.StateRepository)
	queue := &fakeQueue{}

	roomRepo.On("FindByID", mock.Anything, room.ID).Return(room, nil)
	roomRepo.On("TouchActivity", mock.Anything, room.ID, mock.Anything).Return(nil).Maybe()
	state.On("SetDocumentCache", mock.Anything, room.ID, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	state.On("PushRecentMessage", mock.Anything, room.ID, mock.Anything).Return(nil).Maybe()

	return &testEnv{
		coordinator: collab.NewCoordinator(roomRepo, msgRepo, execRepo, state, queue, nil),
		roomRepo:    roomRepo,
		msgRepo:     msgRepo,
		execRepo:    execRepo,
		state:       state,
		queue:       queue,
	}
}

func testRoom() *domain.Room {
	return &domain.Room{
		ID:              "room-1",
		Name:            "dsa-practice",
		Language:        "go",
		MaxParticipants: 10,
		OwnerID:         "owner-1",
		Content:         "a",
		ContentVersion:  3,
		IsActive:        true,
		LastActivity:    time.Now().UTC(),
	}
}

func join(t *testing.T, env *testEnv, userID, name, password string) (*collab.RoomJoined, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	joined, err := env.coordinator.Join(context.Background(), collab.JoinRequest{
		RoomID:   "room-1",
		UserID:   userID,
		Name:     name,
		Password: password,
		Sender:   sender,
	})
	require.NoError(t, err)
	return joined, sender
}

func TestJoinReturnsSnapshotAndNotifiesOthers(t *testing.T) {
	env := newTestEnv(t, testRoom())

	j1, s1 := join(t, env, "owner-1", "alice", "")
	assert.Equal(t, "a", j1.CurrentContent)
	assert.Equal(t, uint64(3), j1.ContentVersion)
	require.Len(t, j1.Participants, 1)
	assert.Equal(t, domain.RoleOwner, j1.Participants[0].Role)

	j2, s2 := join(t, env, "u2", "bob", "")
	require.Len(t, j2.Participants, 2)
	assert.Equal(t, "owner-1", j2.Participants[0].UserID)
	assert.Equal(t, domain.RoleParticipant, j2.Participants[1].Role)

	// The existing member hears about the newcomer; the newcomer gets
	// only the snapshot reply, no echo of its own join.
	joinEvents := s1.byName("user_joined")
	require.Len(t, joinEvents, 1)
	assert.Equal(t, "u2", joinEvents[0].(collab.UserJoined).UserID)
	assert.Empty(t, s2.byName("user_joined"))
}

func TestJoinRoomFull(t *testing.T) {
	room := testRoom()
	room.MaxParticipants = 2
	env := newTestEnv(t, room)

	join(t, env, "u1", "a", "")
	join(t, env, "u2", "b", "")

	_, err := env.coordinator.Join(context.Background(), collab.JoinRequest{
		RoomID: "room-1", UserID: "u3", Name: "c", Sender: &fakeSender{},
	})
	assert.ErrorIs(t, err, collab.ErrRoomFull)
}

func TestJoinPrivateRoomPassword(t *testing.T) {
	room := testRoom()
	room.IsPrivate = true
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	room.PasswordHash = string(hash)
	env := newTestEnv(t, room)

	_, err = env.coordinator.Join(context.Background(), collab.JoinRequest{
		RoomID: "room-1", UserID: "u1", Name: "a", Password: "wrong", Sender: &fakeSender{},
	})
	assert.ErrorIs(t, err, collab.ErrInvalidPassword)

	joined, _ := join(t, env, "u1", "a", "hunter2")
	assert.Equal(t, "room-1", joined.RoomID)
}

func TestRejoinDoesNotRefanUserJoined(t *testing.T) {
	env := newTestEnv(t, testRoom())

	_, s1 := join(t, env, "u1", "a", "")
	join(t, env, "u2", "b", "")
	join(t, env, "u2", "b", "") // reconnect

	assert.Len(t, s1.byName("user_joined"), 1, "rejoin must not produce a second announcement")
}

func TestProposeChangeAcceptFansOutExceptAuthor(t *testing.T) {
	env := newTestEnv(t, testRoom())
	_, s1 := join(t, env, "u1", "a", "")
	_, s2 := join(t, env, "u2", "b", "")

	reply, err := env.coordinator.ProposeChange(context.Background(), "room-1", "u1", collab.Proposal{
		Content:     "ab",
		BaseVersion: 3,
	})
	require.NoError(t, err)

	ack, ok := reply.(collab.CodeChangeAck)
	require.True(t, ok, "author gets an ack, got %T", reply)
	assert.Equal(t, uint64(4), ack.Version)
	assert.True(t, ack.Success)

	updates := s2.byName("code_updated")
	require.Len(t, updates, 1)
	update := updates[0].(collab.CodeUpdated)
	assert.Equal(t, "ab", update.Content)
	assert.Equal(t, uint64(4), update.Version)
	assert.Equal(t, "u1", update.UserID)

	assert.Empty(t, s1.byName("code_updated"), "author must not receive the broadcast")

	require.Len(t, env.queue.docVersions, 1)
	assert.Equal(t, uint64(4), env.queue.docVersions[0])
}

func TestConcurrentEditsSecondProposerConflictsThenRebases(t *testing.T) {
	env := newTestEnv(t, testRoom())
	_, s1 := join(t, env, "u1", "a", "")
	_, s2 := join(t, env, "u2", "b", "")

	ctx := context.Background()

	// Both clients edit from version 3. The first arrival wins.
	reply, err := env.coordinator.ProposeChange(ctx, "room-1", "u1", collab.Proposal{Content: "ab", BaseVersion: 3})
	require.NoError(t, err)
	require.IsType(t, collab.CodeChangeAck{}, reply)

	reply, err = env.coordinator.ProposeChange(ctx, "room-1", "u2", collab.Proposal{Content: "ac", BaseVersion: 3})
	require.NoError(t, err)
	conflict, ok := reply.(collab.CodeConflict)
	require.True(t, ok, "stale proposal must conflict, got %T", reply)
	assert.Equal(t, "ab", conflict.CurrentContent)
	assert.Equal(t, uint64(4), conflict.CurrentVersion)

	// The losing edit changed nothing and nobody else heard about it.
	assert.Len(t, s1.byName("code_updated"), 0)
	assert.Len(t, s2.byName("code_updated"), 1)

	// Rebase against the authoritative state and retry.
	reply, err = env.coordinator.ProposeChange(ctx, "room-1", "u2", collab.Proposal{Content: "abc", BaseVersion: 4})
	require.NoError(t, err)
	ack, ok := reply.(collab.CodeChangeAck)
	require.True(t, ok)
	assert.Equal(t, uint64(5), ack.Version)

	finals := s1.byName("code_updated")
	require.Len(t, finals, 1)
	assert.Equal(t, "abc", finals[0].(collab.CodeUpdated).Content)
}

func TestProposeChangeRequiresMembership(t *testing.T) {
	env := newTestEnv(t, testRoom())
	join(t, env, "u1", "a", "")

	_, err := env.coordinator.ProposeChange(context.Background(), "room-1", "stranger", collab.Proposal{
		Content: "x", BaseVersion: 3,
	})
	assert.ErrorIs(t, err, collab.ErrNotInRoom)

	_, err = env.coordinator.ProposeChange(context.Background(), "no-such-room", "u1", collab.Proposal{
		Content: "x", BaseVersion: 3,
	})
	assert.ErrorIs(t, err, collab.ErrNotInRoom)
}

func TestCursorUpdateFansOutExceptAuthor(t *testing.T) {
	env := newTestEnv(t, testRoom())
	_, s1 := join(t, env, "u1", "a", "")
	_, s2 := join(t, env, "u2", "b", "")

	pos := domain.CursorPosition{Line: 2, Column: 5}
	err := env.coordinator.UpdateCursor(context.Background(), "room-1", "u1", pos, nil)
	require.NoError(t, err)

	moved := s2.byName("cursor_moved")
	require.Len(t, moved, 1)
	assert.Equal(t, pos, moved[0].(collab.CursorMoved).CursorPosition)
	assert.Empty(t, s1.byName("cursor_moved"))

	// Presence never touches the document.
	env.state.On("GetRecentMessages", mock.Anything, "room-1", 50).
		Return(nil, repository.ErrNotFound).Maybe()
	env.msgRepo.On("ListRecent", mock.Anything, "room-1", 50).Return(nil, nil).Maybe()
	state, err := env.coordinator.RoomState(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), state.Version)
}

func TestPostMessageFansOutToEveryoneIncludingAuthor(t *testing.T) {
	env := newTestEnv(t, testRoom())
	_, s1 := join(t, env, "u1", "alice", "")
	_, s2 := join(t, env, "u2", "bob", "")

	err := env.coordinator.PostMessage(context.Background(), "room-1", "u1", "hello", domain.MessageTypeText)
	require.NoError(t, err)

	m1 := s1.byName("new_message")
	m2 := s2.byName("new_message")
	require.Len(t, m1, 1)
	require.Len(t, m2, 1)

	msg1 := m1[0].(collab.NewMessage).ChatMessage
	msg2 := m2[0].(collab.NewMessage).ChatMessage
	assert.Equal(t, msg1.ID, msg2.ID, "both clients render the same message")
	assert.Equal(t, "hello", msg1.Content)
	assert.Equal(t, "alice", msg1.AuthorName)
	assert.NotEmpty(t, msg1.ID)

	require.Len(t, env.queue.chats, 1)
	assert.Equal(t, msg1.ID, env.queue.chats[0].ID)
}

func TestPostMessageRequiresMembership(t *testing.T) {
	env := newTestEnv(t, testRoom())
	join(t, env, "u1", "a", "")

	err := env.coordinator.PostMessage(context.Background(), "room-1", "stranger", "hi", domain.MessageTypeText)
	assert.ErrorIs(t, err, collab.ErrNotInRoom)
}

func TestRequestExecutionQueuesAndAnnounces(t *testing.T) {
	env := newTestEnv(t, testRoom())
	_, s1 := join(t, env, "u1", "a", "")
	_, s2 := join(t, env, "u2", "b", "")

	env.execRepo.On("Save", mock.Anything, mock.MatchedBy(func(e *domain.Execution) bool {
		return e.RoomID == "room-1" && e.Status == domain.ExecutionQueued && e.Language == "go"
	})).Return(nil).Once()

	reply, err := env.coordinator.RequestExecution(context.Background(), "room-1", "u1", "go", "package main", "")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.ExecutionID)

	// The whole room sees the run start, requester included.
	assert.Len(t, s1.byName("execution_started"), 1)
	assert.Len(t, s2.byName("execution_started"), 1)

	require.Len(t, env.queue.executions, 1)
	assert.Equal(t, reply.ExecutionID, env.queue.executions[0])
	env.execRepo.AssertExpectations(t)
}

func TestRequestExecutionQueueUnavailable(t *testing.T) {
	env := newTestEnv(t, testRoom())
	join(t, env, "u1", "a", "")

	env.queue.failExecution = true
	env.execRepo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := env.coordinator.RequestExecution(context.Background(), "room-1", "u1", "go", "package main", "")
	assert.ErrorIs(t, err, collab.ErrExecutionUnavailable)
}

func TestReportExecutionBroadcastsToRoom(t *testing.T) {
	env := newTestEnv(t, testRoom())
	_, s1 := join(t, env, "u1", "a", "")

	err := env.coordinator.ReportExecution(context.Background(), "room-1", collab.ExecutionFinished{
		ExecutionID: "exec-1",
		Status:      domain.ExecutionCompleted,
		Output:      "ok\n",
	})
	require.NoError(t, err)

	done := s1.byName("execution_completed")
	require.Len(t, done, 1)
	assert.Equal(t, "exec-1", done[0].(collab.ExecutionFinished).ExecutionID)

	// Reports for rooms with no live actor are dropped silently.
	err = env.coordinator.ReportExecution(context.Background(), "ghost-room", collab.ExecutionFinished{ExecutionID: "exec-2"})
	assert.NoError(t, err)
}

func TestSlowConsumerDoesNotBlockFanout(t *testing.T) {
	env := newTestEnv(t, testRoom())
	_, s1 := join(t, env, "u1", "a", "")
	_, s2 := join(t, env, "u2", "b", "")
	_, s3 := join(t, env, "u3", "c", "")
	s2.full = true

	_, err := env.coordinator.ProposeChange(context.Background(), "room-1", "u1", collab.Proposal{
		Content: "ab", BaseVersion: 3,
	})
	require.NoError(t, err)

	// The backed-up member misses the event; everyone else still gets it.
	assert.Empty(t, s1.byName("code_updated"))
	assert.Empty(t, s2.byName("code_updated"))
	assert.Len(t, s3.byName("code_updated"), 1)
}

func TestLeaveNotifiesRemainingOnce(t *testing.T) {
	env := newTestEnv(t, testRoom())
	_, s1 := join(t, env, "u1", "a", "")
	join(t, env, "u2", "b", "")

	require.NoError(t, env.coordinator.Leave(context.Background(), "room-1", "u2"))
	left := s1.byName("user_left")
	require.Len(t, left, 1)
	assert.Equal(t, "u2", left[0].(collab.UserLeft).UserID)

	// A duplicate disconnect signal produces no second event.
	require.NoError(t, env.coordinator.Leave(context.Background(), "room-1", "u2"))
	assert.Len(t, s1.byName("user_left"), 1)
}

func TestDepartedParticipantReceivesNothing(t *testing.T) {
	env := newTestEnv(t, testRoom())
	join(t, env, "u1", "a", "")
	_, s2 := join(t, env, "u2", "b", "")

	require.NoError(t, env.coordinator.Leave(context.Background(), "room-1", "u2"))
	before := len(s2.events)

	_, err := env.coordinator.ProposeChange(context.Background(), "room-1", "u1", collab.Proposal{Content: "ab", BaseVersion: 3})
	require.NoError(t, err)
	err = env.coordinator.PostMessage(context.Background(), "room-1", "u1", "bye", domain.MessageTypeText)
	require.NoError(t, err)

	assert.Len(t, s2.events, before, "events must not reach departed participants")
}

func TestRoomStateForActiveRoom(t *testing.T) {
	env := newTestEnv(t, testRoom())
	join(t, env, "u1", "a", "")

	recent := []domain.ChatMessage{{ID: "m1", RoomID: "room-1", Content: "hi"}}
	env.state.On("GetRecentMessages", mock.Anything, "room-1", 50).Return(recent, nil).Once()

	state, err := env.coordinator.RoomState(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, "a", state.Content)
	assert.Equal(t, uint64(3), state.Version)
	require.Len(t, state.Participants, 1)
	assert.Equal(t, recent, state.RecentMessages)
}

func TestRoomStateFallsBackToDatabaseForChat(t *testing.T) {
	env := newTestEnv(t, testRoom())
	join(t, env, "u1", "a", "")

	env.state.On("GetRecentMessages", mock.Anything, "room-1", 50).
		Return(nil, repository.ErrNotFound).Once()
	dbMsgs := []domain.ChatMessage{{ID: "m1"}, {ID: "m2"}}
	env.msgRepo.On("ListRecent", mock.Anything, "room-1", 50).Return(dbMsgs, nil).Once()

	state, err := env.coordinator.RoomState(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, dbMsgs, state.RecentMessages)
	env.msgRepo.AssertExpectations(t)
}

func TestRoomStateUnknownRoom(t *testing.T) {
	env := newTestEnv(t, testRoom())
	env.roomRepo.On("FindByID", mock.Anything, "nope").Return(nil, repository.ErrRoomNotFound)

	_, err := env.coordinator.RoomState(context.Background(), "nope")
	assert.ErrorIs(t, err, collab.ErrRoomNotFound)
}

func TestDeactivateRoomSkipsOccupiedRooms(t *testing.T) {
	env := newTestEnv(t, testRoom())
	_, s1 := join(t, env, "u1", "a", "")

	env.coordinator.DeactivateRoom("room-1")

	// Still live: an edit goes through and reaches nobody else but works.
	reply, err := env.coordinator.ProposeChange(context.Background(), "room-1", "u1", collab.Proposal{Content: "ab", BaseVersion: 3})
	require.NoError(t, err)
	assert.IsType(t, collab.CodeChangeAck{}, reply)
	assert.Empty(t, s1.byName("code_updated"))
}

func TestDeactivateEmptyRoomThenRehydrate(t *testing.T) {
	env := newTestEnv(t, testRoom())
	join(t, env, "u1", "a", "")
	require.NoError(t, env.coordinator.Leave(context.Background(), "room-1", "u1"))

	env.coordinator.DeactivateRoom("room-1")

	// A later join rehydrates from persistence.
	joined, _ := join(t, env, "u1", "a", "")
	assert.Equal(t, uint64(3), joined.ContentVersion)
	env.roomRepo.AssertNumberOfCalls(t, "FindByID", 2)
}
