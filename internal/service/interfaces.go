package service

import (
	"context"
	"io"
	"time"

	"reefops/internal/models"
	"reefops/pkg/objstore"
)

// MessageStore is the persistence boundary for message documents.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	RootMessagesWindow(ctx context.Context, msgType models.MessageType, scopeID string, limit int) ([]models.Message, error)
	RootMessagesBefore(ctx context.Context, msgType models.MessageType, scopeID string, before *models.Message, limit int) ([]models.Message, bool, error)
	ScopeMessages(ctx context.Context, msgType models.MessageType, scopeID string) ([]models.Message, error)
	ThreadMessages(ctx context.Context, rootID string) ([]models.Message, error)
	UpdateMessageEdit(ctx context.Context, msg *models.Message) error
	UpdateMessageReadState(ctx context.Context, msg *models.Message) error
	UpdateMessageReactions(ctx context.Context, msg *models.Message) error
	UpdateMessageDeletedFor(ctx context.Context, msg *models.Message) error
	BumpReplyCounters(ctx context.Context, parentID string, at time.Time) error
	BumpThreadCounters(ctx context.Context, rootID string, at time.Time) error
	MarkScopeMessagesDeletedFor(ctx context.Context, msgType models.MessageType, scopeID, userID string) error
	PurgeChat(ctx context.Context, chatID string) error
	WatchScope(msgType models.MessageType, scopeID string) (<-chan struct{}, func())
}

// ScopeStore resolves users and conversation scopes.
type ScopeStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	UsersByRole(ctx context.Context, role string) ([]models.User, error)
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	SaveChat(ctx context.Context, chat *models.Chat) error
	FindChatByParticipants(ctx context.Context, userA, userB string) (*models.Chat, error)
	AreBuddies(ctx context.Context, userA, userB string) (bool, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	InsertNotifications(ctx context.Context, notifications []models.Notification) error
	UnseenNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationsSeen(ctx context.Context, userID string, at time.Time) error
}

// ScheduleStore is the persistence boundary for shifts, time off and swaps.
type ScheduleStore interface {
	InsertShift(ctx context.Context, shift *models.Shift) error
	UpdateShift(ctx context.Context, shift *models.Shift) error
	DeleteShift(ctx context.Context, id string) error
	GetShift(ctx context.Context, id string) (*models.Shift, error)
	StaffShiftsOn(ctx context.Context, staffID, date string) ([]models.Shift, error)
	ShiftsBetween(ctx context.Context, startDate, endDate string) ([]models.Shift, error)
	InsertTimeOff(ctx context.Context, req *models.TimeOffRequest) error
	GetTimeOff(ctx context.Context, id string) (*models.TimeOffRequest, error)
	DecideTimeOff(ctx context.Context, id string, status models.TimeOffStatus, decidedBy string, at time.Time) error
	ApprovedTimeOffCovering(ctx context.Context, staffID, date string) ([]models.TimeOffRequest, error)
	StaffTimeOff(ctx context.Context, staffID string) ([]models.TimeOffRequest, error)
	InsertSwap(ctx context.Context, swap *models.ShiftSwap) error
	GetSwap(ctx context.Context, id string) (*models.ShiftSwap, error)
	OpenSwaps(ctx context.Context) ([]models.ShiftSwap, error)
	ResolveSwap(ctx context.Context, id string, status models.SwapStatus, toStaffID string, at time.Time) error
}

// ObjectStore is the file-attachment storage boundary.
type ObjectStore interface {
	Save(ctx context.Context, key string, r io.Reader) (*objstore.Object, error)
	Delete(ctx context.Context, key string) error
}

// Notifier receives best-effort fan-out after a write lands. Failures are
// logged by the implementation, never surfaced to the caller.
type Notifier interface {
	MessageSent(ctx context.Context, msg *models.Message, recipientIDs []string)
	TimeOffDecided(ctx context.Context, req *models.TimeOffRequest)
	SwapOffered(ctx context.Context, swap *models.ShiftSwap, shift *models.Shift)
}
