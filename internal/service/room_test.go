package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
	"github.com/tanishk-sarode/codechill-v2/internal/repository"
	"github.com/tanishk-sarode/codechill-v2/internal/repository/mocks"
	"github.com/tanishk-sarode/codechill-v2/internal/service"
)

func TestCreateRoomDefaults(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(roomRepo)

	roomRepo.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.Room) bool {
		return r.ID != "" &&
			r.Name == "algo practice" &&
			r.Language == "javascript" &&
			r.MaxParticipants == domain.DefaultParticipants &&
			r.OwnerID == "owner-1" &&
			r.IsActive &&
			!r.LastActivity.IsZero()
	})).Return(nil).Once()

	room, err := svc.CreateRoom(context.Background(), "owner-1", service.CreateRoomInput{
		Name: "  algo practice  ",
	})
	require.NoError(t, err)
	assert.False(t, room.IsPrivate)
	assert.Empty(t, room.PasswordHash)
	roomRepo.AssertExpectations(t)
}

func TestCreateRoomValidation(t *testing.T) {
	svc := service.NewRoomService(new(mocks.RoomRepository))
	ctx := context.Background()

	_, err := svc.CreateRoom(ctx, "owner-1", service.CreateRoomInput{Name: "   "})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.CreateRoom(ctx, "owner-1", service.CreateRoomInput{Name: "ok", Language: "cobol"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.CreateRoom(ctx, "owner-1", service.CreateRoomInput{Name: "ok", IsPrivate: true})
	assert.ErrorIs(t, err, service.ErrInvalidInput, "private rooms require a password")
}

func TestCreateRoomClampsCapacity(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(roomRepo)

	var saved []*domain.Room
	roomRepo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = append(saved, args.Get(1).(*domain.Room))
	}).Return(nil).Times(2)

	_, err := svc.CreateRoom(context.Background(), "o", service.CreateRoomInput{Name: "tiny", MaxParticipants: 1})
	require.NoError(t, err)
	_, err = svc.CreateRoom(context.Background(), "o", service.CreateRoomInput{Name: "huge", MaxParticipants: 900})
	require.NoError(t, err)

	require.Len(t, saved, 2)
	assert.Equal(t, domain.MinParticipants, saved[0].MaxParticipants)
	assert.Equal(t, domain.MaxParticipants, saved[1].MaxParticipants)
}

func TestCreateRoomHashesPrivatePassword(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(roomRepo)

	roomRepo.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.Room) bool {
		return r.IsPrivate &&
			bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte("hunter2")) == nil
	})).Return(nil).Once()

	room, err := svc.CreateRoom(context.Background(), "o", service.CreateRoomInput{
		Name: "secret club", IsPrivate: true, Password: "hunter2",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", room.PasswordHash, "password is never stored in the clear")
	roomRepo.AssertExpectations(t)
}

func TestGetRoomHidesInactiveRooms(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(roomRepo)

	roomRepo.On("FindByID", mock.Anything, "dead").Return(&domain.Room{
		ID: "dead", IsActive: false,
	}, nil).Once()
	_, err := svc.GetRoom(context.Background(), "dead")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)

	roomRepo.On("FindByID", mock.Anything, "nope").Return(nil, repository.ErrRoomNotFound).Once()
	_, err = svc.GetRoom(context.Background(), "nope")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}

func TestSearchRoomsRejectsUnknownLanguage(t *testing.T) {
	svc := service.NewRoomService(new(mocks.RoomRepository))
	_, err := svc.SearchRooms(context.Background(), "graph", "cobol", 10)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestSearchRoomsPassesQueryThrough(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(roomRepo)

	want := []domain.Room{{ID: "r1"}}
	roomRepo.On("ListPublic", mock.Anything, repository.RoomQuery{
		Search: "graph", Language: "go", Limit: 5,
	}).Return(want, nil).Once()

	rooms, err := svc.SearchRooms(context.Background(), "  graph  ", "go", 5)
	require.NoError(t, err)
	assert.Equal(t, want, rooms)
	roomRepo.AssertExpectations(t)
}

func TestTrendingRoomsClampsLimit(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(roomRepo)

	roomRepo.On("ListPublic", mock.Anything, repository.RoomQuery{Limit: 10}).
		Return([]domain.Room{}, nil).Times(2)

	_, err := svc.TrendingRooms(context.Background(), 0)
	require.NoError(t, err)
	_, err = svc.TrendingRooms(context.Background(), 500)
	require.NoError(t, err)
	roomRepo.AssertExpectations(t)
}
