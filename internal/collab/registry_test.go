package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
)

func participant(userID, name string) *domain.Participant {
	return &domain.Participant{UserID: userID, Name: name, Role: domain.RoleParticipant}
}

func TestAddParticipantKeepsInsertionOrder(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{"u1", "u2", "u3"} {
		_, err := r.AddParticipant("room", participant(id, id), 10)
		require.NoError(t, err)
	}

	list := r.ListParticipants("room")
	require.Len(t, list, 3)
	assert.Equal(t, "u1", list[0].UserID)
	assert.Equal(t, "u2", list[1].UserID)
	assert.Equal(t, "u3", list[2].UserID)
}

func TestRejoinReplacesInPlace(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"u1", "u2", "u3"} {
		_, err := r.AddParticipant("room", participant(id, id), 10)
		require.NoError(t, err)
	}

	replaced, err := r.AddParticipant("room", participant("u2", "u2-reconnected"), 10)
	require.NoError(t, err)
	assert.True(t, replaced)

	list := r.ListParticipants("room")
	require.Len(t, list, 3, "rejoin must not duplicate the entry")
	assert.Equal(t, "u2", list[1].UserID, "rejoin keeps the insertion slot")
	assert.Equal(t, "u2-reconnected", list[1].Name)
}

func TestAddParticipantCapacity(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"u1", "u2"} {
		_, err := r.AddParticipant("room", participant(id, id), 2)
		require.NoError(t, err)
	}

	_, err := r.AddParticipant("room", participant("u3", "u3"), 2)
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, 2, r.Count("room"), "rejected join must not mutate the set")

	// A member rejoining a full room is not a capacity violation.
	replaced, err := r.AddParticipant("room", participant("u1", "u1"), 2)
	require.NoError(t, err)
	assert.True(t, replaced)
}

func TestRemoveParticipantIdempotent(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddParticipant("room", participant("u1", "u1"), 10)
	require.NoError(t, err)

	assert.True(t, r.RemoveParticipant("room", "u1"))
	assert.False(t, r.RemoveParticipant("room", "u1"), "second removal reports nothing removed")
	assert.False(t, r.RemoveParticipant("room", "ghost"))
	assert.Equal(t, 0, r.Count("room"))
}

func TestLastLeaveMarksRoomInactiveButKeepsEntry(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddParticipant("room", participant("u1", "u1"), 10)
	require.NoError(t, err)
	require.Contains(t, r.ActiveRoomIDs(), "room")

	r.RemoveParticipant("room", "u1")

	assert.NotContains(t, r.ActiveRoomIDs(), "room")
	assert.NotNil(t, r.ListParticipants("room"), "entry survives for later rejoins")
	assert.Empty(t, r.ListParticipants("room"))
}

func TestUpdateCursor(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddParticipant("room", participant("u1", "u1"), 10)
	require.NoError(t, err)

	pos := domain.CursorPosition{Line: 3, Column: 7}
	sel := &domain.SelectionRange{
		Start: domain.CursorPosition{Line: 3, Column: 1},
		End:   domain.CursorPosition{Line: 3, Column: 7},
	}
	assert.True(t, r.UpdateCursor("room", "u1", pos, sel))

	p, ok := r.Get("room", "u1")
	require.True(t, ok)
	assert.Equal(t, pos, p.Cursor)
	require.NotNil(t, p.Selection)
	assert.Equal(t, *sel, *p.Selection)

	assert.False(t, r.UpdateCursor("room", "ghost", pos, nil))
	assert.False(t, r.UpdateCursor("nowhere", "u1", pos, nil))
}

func TestListParticipantsReturnsCopies(t *testing.T) {
	r := NewRegistry()
	_, err := r.AddParticipant("room", participant("u1", "u1"), 10)
	require.NoError(t, err)

	list := r.ListParticipants("room")
	require.Len(t, list, 1)
	list[0].Name = "mutated"

	p, ok := r.Get("room", "u1")
	require.True(t, ok)
	assert.Equal(t, "u1", p.Name)
}

func TestDrop(t *testing.T) {
	r := NewRegistry()
	r.Register("room")
	r.Drop("room")
	assert.Equal(t, 0, r.Count("room"))
	assert.Nil(t, r.ListParticipants("room"))
}
