package service

import (
	"context"
	"io"
	"time"

	"reefops/internal/models"
	"reefops/pkg/objstore"

	"github.com/stretchr/testify/mock"
)

type mockMessageStore struct {
	mock.Mock
}

func (m *mockMessageStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMessageStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *mockMessageStore) RootMessagesWindow(ctx context.Context, msgType models.MessageType, scopeID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, msgType, scopeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *mockMessageStore) RootMessagesBefore(ctx context.Context, msgType models.MessageType, scopeID string, before *models.Message, limit int) ([]models.Message, bool, error) {
	args := m.Called(ctx, msgType, scopeID, before, limit)
	var page []models.Message
	if args.Get(0) != nil {
		page = args.Get(0).([]models.Message)
	}
	return page, args.Bool(1), args.Error(2)
}

func (m *mockMessageStore) ScopeMessages(ctx context.Context, msgType models.MessageType, scopeID string) ([]models.Message, error) {
	args := m.Called(ctx, msgType, scopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *mockMessageStore) ThreadMessages(ctx context.Context, rootID string) ([]models.Message, error) {
	args := m.Called(ctx, rootID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *mockMessageStore) UpdateMessageEdit(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMessageStore) UpdateMessageReadState(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMessageStore) UpdateMessageReactions(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMessageStore) UpdateMessageDeletedFor(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMessageStore) BumpReplyCounters(ctx context.Context, parentID string, at time.Time) error {
	return m.Called(ctx, parentID, at).Error(0)
}

func (m *mockMessageStore) BumpThreadCounters(ctx context.Context, rootID string, at time.Time) error {
	return m.Called(ctx, rootID, at).Error(0)
}

func (m *mockMessageStore) MarkScopeMessagesDeletedFor(ctx context.Context, msgType models.MessageType, scopeID, userID string) error {
	return m.Called(ctx, msgType, scopeID, userID).Error(0)
}

func (m *mockMessageStore) PurgeChat(ctx context.Context, chatID string) error {
	return m.Called(ctx, chatID).Error(0)
}

func (m *mockMessageStore) WatchScope(msgType models.MessageType, scopeID string) (<-chan struct{}, func()) {
	args := m.Called(msgType, scopeID)
	return args.Get(0).(<-chan struct{}), args.Get(1).(func())
}

type mockScopeStore struct {
	mock.Mock
}

func (m *mockScopeStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockScopeStore) UsersByRole(ctx context.Context, role string) ([]models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *mockScopeStore) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *mockScopeStore) SaveChat(ctx context.Context, chat *models.Chat) error {
	return m.Called(ctx, chat).Error(0)
}

func (m *mockScopeStore) FindChatByParticipants(ctx context.Context, userA, userB string) (*models.Chat, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *mockScopeStore) AreBuddies(ctx context.Context, userA, userB string) (bool, error) {
	args := m.Called(ctx, userA, userB)
	return args.Bool(0), args.Error(1)
}

func (m *mockScopeStore) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *mockScopeStore) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}

func (m *mockScopeStore) InsertNotifications(ctx context.Context, notifications []models.Notification) error {
	return m.Called(ctx, notifications).Error(0)
}

func (m *mockScopeStore) UnseenNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockScopeStore) MarkNotificationsSeen(ctx context.Context, userID string, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}

type mockScheduleStore struct {
	mock.Mock
}

func (m *mockScheduleStore) InsertShift(ctx context.Context, shift *models.Shift) error {
	return m.Called(ctx, shift).Error(0)
}

func (m *mockScheduleStore) UpdateShift(ctx context.Context, shift *models.Shift) error {
	return m.Called(ctx, shift).Error(0)
}

func (m *mockScheduleStore) DeleteShift(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockScheduleStore) GetShift(ctx context.Context, id string) (*models.Shift, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shift), args.Error(1)
}

func (m *mockScheduleStore) StaffShiftsOn(ctx context.Context, staffID, date string) ([]models.Shift, error) {
	args := m.Called(ctx, staffID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Shift), args.Error(1)
}

func (m *mockScheduleStore) ShiftsBetween(ctx context.Context, startDate, endDate string) ([]models.Shift, error) {
	args := m.Called(ctx, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Shift), args.Error(1)
}

func (m *mockScheduleStore) InsertTimeOff(ctx context.Context, req *models.TimeOffRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockScheduleStore) GetTimeOff(ctx context.Context, id string) (*models.TimeOffRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeOffRequest), args.Error(1)
}

func (m *mockScheduleStore) DecideTimeOff(ctx context.Context, id string, status models.TimeOffStatus, decidedBy string, at time.Time) error {
	return m.Called(ctx, id, status, decidedBy, at).Error(0)
}

func (m *mockScheduleStore) ApprovedTimeOffCovering(ctx context.Context, staffID, date string) ([]models.TimeOffRequest, error) {
	args := m.Called(ctx, staffID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TimeOffRequest), args.Error(1)
}

func (m *mockScheduleStore) StaffTimeOff(ctx context.Context, staffID string) ([]models.TimeOffRequest, error) {
	args := m.Called(ctx, staffID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TimeOffRequest), args.Error(1)
}

func (m *mockScheduleStore) InsertSwap(ctx context.Context, swap *models.ShiftSwap) error {
	return m.Called(ctx, swap).Error(0)
}

func (m *mockScheduleStore) GetSwap(ctx context.Context, id string) (*models.ShiftSwap, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ShiftSwap), args.Error(1)
}

func (m *mockScheduleStore) OpenSwaps(ctx context.Context) ([]models.ShiftSwap, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ShiftSwap), args.Error(1)
}

func (m *mockScheduleStore) ResolveSwap(ctx context.Context, id string, status models.SwapStatus, toStaffID string, at time.Time) error {
	return m.Called(ctx, id, status, toStaffID, at).Error(0)
}

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) Save(ctx context.Context, key string, r io.Reader) (*objstore.Object, error) {
	args := m.Called(ctx, key, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*objstore.Object), args.Error(1)
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) MessageSent(ctx context.Context, msg *models.Message, recipientIDs []string) {
	m.Called(ctx, msg, recipientIDs)
}

func (m *mockNotifier) TimeOffDecided(ctx context.Context, req *models.TimeOffRequest) {
	m.Called(ctx, req)
}

func (m *mockNotifier) SwapOffered(ctx context.Context, swap *models.ShiftSwap, shift *models.Shift) {
	m.Called(ctx, swap, shift)
}
