package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"reefops/internal/constants"
	"reefops/internal/errors"
	"reefops/internal/features"
	"reefops/internal/metrics"
	"reefops/internal/models"
	"reefops/internal/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SendRequest is the caller's input to a send. The server assigns ID and
// timestamp; the sender's display name is resolved from their profile.
type SendRequest struct {
	Type        models.MessageType `json:"type"`
	ScopeID     string             `json:"scopeId"`
	SenderID    string             `json:"senderId"`
	RecipientID string             `json:"recipientId,omitempty"`
	Text        string             `json:"text"`
}

// FileUpload is an attachment accompanying a send.
type FileUpload struct {
	Name      string
	SizeBytes int64
	Reader    io.Reader
}

// MessageService is the store adapter: it validates and authorizes sends,
// persists messages, and exposes live subscriptions, pagination, edits,
// reads, reactions, soft deletes, threads and search.
type MessageService interface {
	Send(ctx context.Context, req SendRequest) (*models.Message, error)
	SendWithFile(ctx context.Context, req SendRequest, file FileUpload) (*models.Message, error)
	SendReply(ctx context.Context, req SendRequest, parentID string) (*models.Message, error)
	Subscribe(ctx context.Context, msgType models.MessageType, scopeID, userID string, deliver func([]models.Message)) (func(), error)
	FetchOlder(ctx context.Context, msgType models.MessageType, scopeID, userID, beforeID string) ([]models.Message, bool, error)
	Thread(ctx context.Context, rootID string) ([]models.Message, error)
	EditMessage(ctx context.Context, id, newText, editorID string) (*models.Message, error)
	MarkRead(ctx context.Context, id, userID string) (*models.Message, error)
	SoftDelete(ctx context.Context, id, userID string) error
	DeleteChat(ctx context.Context, chatID, userID string) error
	AddReaction(ctx context.Context, id, userID, emoji string) (*models.Message, error)
	Search(ctx context.Context, msgType models.MessageType, scopeID, userID, query string) ([]models.Message, error)
}

type messageService struct {
	logger     *logrus.Logger
	store      MessageStore
	scopes     ScopeStore
	files      ObjectStore
	authorizer *Authorizer
	notifier   Notifier
	flags      *features.Flags
	now        func() time.Time

	activeSubs int64
}

func NewMessageService(logger *logrus.Logger, store MessageStore, scopes ScopeStore, files ObjectStore, notifier Notifier, flags *features.Flags) MessageService {
	return &messageService{
		logger:     logger,
		store:      store,
		scopes:     scopes,
		files:      files,
		authorizer: NewAuthorizer(scopes),
		notifier:   notifier,
		flags:      flags,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *messageService) Send(ctx context.Context, req SendRequest) (*models.Message, error) {
	return s.send(ctx, req, nil, nil)
}

func (s *messageService) SendWithFile(ctx context.Context, req SendRequest, file FileUpload) (*models.Message, error) {
	if err := validation.ValidateFileSize(file.SizeBytes); err != nil {
		return nil, err
	}

	// The upload happens before the message persists; a failed persist
	// triggers a best-effort delete so no orphan stays behind.
	_, kind, err := req.Type.Classify()
	if err != nil {
		return nil, errors.NewValidationError("type", err.Error())
	}
	key := fmt.Sprintf("messages/%s/%s/%s-%s", kind, req.ScopeID, uuid.NewString(), sanitizeFileName(file.Name))

	obj, err := s.files.Save(ctx, key, file.Reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServer, "file upload failed")
	}

	attachment := &models.FileAttachment{
		URL:       obj.URL,
		Path:      obj.Key,
		Name:      file.Name,
		MimeType:  obj.MimeType,
		SizeBytes: obj.SizeBytes,
	}

	msg, err := s.send(ctx, req, attachment, func() {
		if cleanupErr := s.files.Delete(context.Background(), obj.Key); cleanupErr != nil {
			s.logger.WithError(cleanupErr).WithField("key", obj.Key).Warn("failed to clean up orphaned upload")
		}
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// send runs the shared path: validate, authorize (possibly rerouting the
// message), snapshot sender and recipients, persist, then fan out
// notifications best-effort. onPersistFailure, when set, cleans up side
// effects that happened before the persist.
func (s *messageService) send(ctx context.Context, req SendRequest, attachment *models.FileAttachment, onPersistFailure func()) (*models.Message, error) {
	msg := &models.Message{
		Type:        req.Type,
		ScopeID:     req.ScopeID,
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		Text:        req.Text,
		Attachment:  attachment,
	}
	if err := validation.ValidateMessageInput(msg, attachment != nil); err != nil {
		return nil, err
	}
	if err := s.authorizer.AuthorizeSend(ctx, msg); err != nil {
		if onPersistFailure != nil {
			onPersistFailure()
		}
		return nil, err
	}

	sender, err := s.scopes.GetUser(ctx, msg.SenderID)
	if err != nil {
		return nil, errors.ClassifyStoreError("resolve sender", err)
	}
	if sender == nil {
		return nil, errors.NewNotFoundError("user", msg.SenderID)
	}
	msg.SenderName = sender.DisplayName

	now := s.now()
	msg.ID = uuid.NewString()
	msg.Timestamp = now
	msg.CreatedAt = now
	msg.UpdatedAt = now

	recipients, err := s.authorizer.Recipients(ctx, msg)
	if err != nil {
		return nil, err
	}

	if msg.IsBroadcast() {
		if err := s.snapshotBroadcastRecipients(ctx, msg, recipients); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		if onPersistFailure != nil {
			onPersistFailure()
		}
		return nil, errors.ClassifyStoreError("persist message", err)
	}
	metrics.Observe(metrics.StoreOpDuration, time.Since(start), map[string]string{"op": "send"})
	metrics.Inc(metrics.MessagesSent, map[string]string{"type": string(msg.Type)})

	// Notification fan-out is a best-effort side effect; a failure here
	// never rolls back the message.
	s.notifier.MessageSent(ctx, msg, recipients)

	return msg, nil
}

// snapshotBroadcastRecipients pins the broadcast's read tracking to the
// membership at send time. Later membership changes do not alter the
// snapshot.
func (s *messageService) snapshotBroadcastRecipients(ctx context.Context, msg *models.Message, recipients []string) error {
	msg.ReadStatus = make(map[string]models.ReadReceipt, len(recipients))
	for _, userID := range recipients {
		name := userID
		user, err := s.scopes.GetUser(ctx, userID)
		if err != nil {
			return errors.ClassifyStoreError("resolve recipient", err)
		}
		if user != nil {
			name = user.DisplayName
		}
		msg.ReadStatus[userID] = models.ReadReceipt{Read: false, Name: name}
	}
	msg.ReadCount = 0
	msg.TotalRecipients = len(recipients)
	return nil
}

func (s *messageService) SendReply(ctx context.Context, req SendRequest, parentID string) (*models.Message, error) {
	parent, err := s.store.GetMessage(ctx, parentID)
	if err != nil {
		return nil, errors.ClassifyStoreError("load parent message", err)
	}
	if parent == nil {
		return nil, errors.NewNotFoundError("message", parentID)
	}

	// Replies live on the parent's channel regardless of what the caller
	// claimed.
	req.Type = parent.Type
	req.ScopeID = parent.ScopeID

	msg := &models.Message{
		Type:        req.Type,
		ScopeID:     req.ScopeID,
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		Text:        req.Text,
	}
	if err := validation.ValidateMessageInput(msg, false); err != nil {
		return nil, err
	}
	if err := s.authorizer.AuthorizeSend(ctx, msg); err != nil {
		return nil, err
	}

	sender, err := s.scopes.GetUser(ctx, msg.SenderID)
	if err != nil {
		return nil, errors.ClassifyStoreError("resolve sender", err)
	}
	if sender == nil {
		return nil, errors.NewNotFoundError("user", msg.SenderID)
	}
	msg.SenderName = sender.DisplayName

	// The thread root is transitive: a reply to a reply keeps the original
	// root, never its immediate parent's ID.
	rootID := parentID
	level := 1
	if parent.ThreadInfo != nil {
		rootID = parent.ThreadInfo.RootMessageID
		level = parent.ThreadInfo.Level + 1
	}
	msg.ParentMessageID = parentID
	msg.ThreadInfo = &models.ThreadInfo{RootMessageID: rootID, Level: level}

	now := s.now()
	msg.ID = uuid.NewString()
	msg.Timestamp = now
	msg.CreatedAt = now
	msg.UpdatedAt = now

	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, errors.ClassifyStoreError("persist reply", err)
	}

	if err := s.store.BumpReplyCounters(ctx, parentID, now); err != nil {
		return nil, errors.ClassifyStoreError("bump reply counters", err)
	}
	// The root tracks thread-wide counters independently when it is not the
	// direct parent.
	if rootID != parentID {
		if err := s.store.BumpThreadCounters(ctx, rootID, now); err != nil {
			return nil, errors.ClassifyStoreError("bump thread counters", err)
		}
	}

	metrics.Inc(metrics.MessagesSent, map[string]string{"type": string(msg.Type)})

	recipients, err := s.authorizer.Recipients(ctx, msg)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"type":     msg.Type,
			"scope_id": msg.ScopeID,
		}).Warn("failed to resolve reply recipients, skipping notifications")
	} else {
		s.notifier.MessageSent(ctx, msg, recipients)
	}

	return msg, nil
}

// Subscribe delivers the current root-message window and re-delivers it on
// every change to the scope, ascending by timestamp, with messages deleted
// for userID filtered out. The returned teardown stops delivery; it is safe
// to call more than once.
func (s *messageService) Subscribe(ctx context.Context, msgType models.MessageType, scopeID, userID string, deliver func([]models.Message)) (func(), error) {
	if !msgType.IsValid() {
		return nil, errors.NewValidationError("type", fmt.Sprintf("unknown message type %q", msgType))
	}

	changes, cancelWatch := s.store.WatchScope(msgType, scopeID)

	push := func() {
		window, err := s.store.RootMessagesWindow(ctx, msgType, scopeID, constants.MessagePageSize)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"type":     msgType,
				"scope_id": scopeID,
			}).Error("failed to load subscription window")
			return
		}
		deliver(visibleTo(window, userID))
	}
	push()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-changes:
				push()
			}
		}
	}()

	metrics.SetGauge(metrics.SubscriptionsActive, float64(atomic.AddInt64(&s.activeSubs, 1)), nil)
	var torn bool
	teardown := func() {
		if torn {
			return
		}
		torn = true
		close(done)
		cancelWatch()
		metrics.SetGauge(metrics.SubscriptionsActive, float64(atomic.AddInt64(&s.activeSubs, -1)), nil)
	}
	return teardown, nil
}

func (s *messageService) FetchOlder(ctx context.Context, msgType models.MessageType, scopeID, userID, beforeID string) ([]models.Message, bool, error) {
	var before *models.Message
	if beforeID != "" {
		anchor, err := s.store.GetMessage(ctx, beforeID)
		if err != nil {
			return nil, false, errors.ClassifyStoreError("load pagination anchor", err)
		}
		if anchor == nil {
			return nil, false, errors.NewNotFoundError("message", beforeID)
		}
		before = anchor
	}

	page, hasMore, err := s.store.RootMessagesBefore(ctx, msgType, scopeID, before, constants.MessagePageSize)
	if err != nil {
		return nil, false, errors.ClassifyStoreError("fetch older messages", err)
	}
	// hasMore reflects the raw page size; tombstone filtering happens after
	// so a page full of deletions still signals more history.
	return visibleTo(page, userID), hasMore, nil
}

func (s *messageService) Thread(ctx context.Context, rootID string) ([]models.Message, error) {
	thread, err := s.store.ThreadMessages(ctx, rootID)
	if err != nil {
		return nil, errors.ClassifyStoreError("load thread", err)
	}
	if len(thread) == 0 {
		return nil, errors.NewNotFoundError("thread", rootID)
	}
	return thread, nil
}

func (s *messageService) EditMessage(ctx context.Context, id, newText, editorID string) (*models.Message, error) {
	if strings.TrimSpace(newText) == "" {
		return nil, errors.NewValidationError("text", "edited text cannot be empty")
	}
	if len(newText) > constants.MaxMessageTextLength {
		return nil, errors.NewValidationError("text", "text exceeds maximum length")
	}

	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return nil, errors.ClassifyStoreError("load message", err)
	}
	if msg == nil {
		return nil, errors.NewNotFoundError("message", id)
	}

	now := s.now()
	if msg.SenderID != editorID {
		return nil, errors.NewPermissionError("only the sender may edit a message")
	}
	if msg.IsBroadcast() {
		return nil, errors.NewPermissionError("broadcast messages cannot be edited")
	}
	if now.Sub(msg.Timestamp) > constants.EditWindow {
		return nil, errors.NewValidationError("id", "the edit window has expired")
	}

	msg.RecordEdit(newText, editorID, now)
	msg.UpdatedAt = now
	if err := s.store.UpdateMessageEdit(ctx, msg); err != nil {
		return nil, errors.ClassifyStoreError("persist edit", err)
	}
	metrics.Inc(metrics.MessagesEdited, nil)
	return msg, nil
}

func (s *messageService) MarkRead(ctx context.Context, id, userID string) (*models.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return nil, errors.ClassifyStoreError("load message", err)
	}
	if msg == nil {
		return nil, errors.NewNotFoundError("message", id)
	}

	var changed bool
	if msg.IsBroadcast() {
		changed = msg.MarkBroadcastRead(userID, s.now())
	} else {
		changed = msg.MarkReadBy(userID)
	}
	if !changed {
		return msg, nil
	}

	msg.UpdatedAt = s.now()
	if err := s.store.UpdateMessageReadState(ctx, msg); err != nil {
		return nil, errors.ClassifyStoreError("persist read state", err)
	}
	return msg, nil
}

func (s *messageService) SoftDelete(ctx context.Context, id, userID string) error {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return errors.ClassifyStoreError("load message", err)
	}
	if msg == nil {
		return errors.NewNotFoundError("message", id)
	}
	if msg.IsDeletedFor(userID) {
		return nil
	}

	msg.DeletedFor = append(msg.DeletedFor, userID)
	msg.UpdatedAt = s.now()
	if err := s.store.UpdateMessageDeletedFor(ctx, msg); err != nil {
		return errors.ClassifyStoreError("persist soft delete", err)
	}
	metrics.Inc(metrics.MessagesDeleted, nil)
	return nil
}

// DeleteChat removes the user from the chat. The last participant leaving
// purges the chat and all its messages; otherwise the chat survives and its
// messages are tombstoned for the leaver only.
func (s *messageService) DeleteChat(ctx context.Context, chatID, userID string) error {
	chat, err := s.scopes.GetChat(ctx, chatID)
	if err != nil {
		return errors.ClassifyStoreError("load chat", err)
	}
	if chat == nil {
		return errors.NewNotFoundError("chat", chatID)
	}
	if !chat.HasActiveParticipant(userID) {
		return errors.NewPermissionError(fmt.Sprintf("user %s is not a participant of chat %s", userID, chatID))
	}

	remaining := make([]string, 0, len(chat.ActiveParticipants))
	for _, id := range chat.ActiveParticipants {
		if id != userID {
			remaining = append(remaining, id)
		}
	}

	if len(remaining) == 0 {
		if err := s.store.PurgeChat(ctx, chatID); err != nil {
			return errors.ClassifyStoreError("purge chat", err)
		}
		return nil
	}

	chat.ActiveParticipants = remaining
	if err := s.scopes.SaveChat(ctx, chat); err != nil {
		return errors.ClassifyStoreError("save chat", err)
	}
	if err := s.store.MarkScopeMessagesDeletedFor(ctx, models.TypeChat, chatID, userID); err != nil {
		return errors.ClassifyStoreError("tombstone chat messages", err)
	}
	return nil
}

func (s *messageService) AddReaction(ctx context.Context, id, userID, emoji string) (*models.Message, error) {
	if err := validation.ValidateEmoji(emoji); err != nil {
		return nil, err
	}

	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return nil, errors.ClassifyStoreError("load message", err)
	}
	if msg == nil {
		return nil, errors.NewNotFoundError("message", id)
	}

	user, err := s.scopes.GetUser(ctx, userID)
	if err != nil {
		return nil, errors.ClassifyStoreError("resolve reacting user", err)
	}
	name := userID
	if user != nil {
		name = user.DisplayName
	}

	msg.ToggleReaction(userID, name, emoji, s.now())
	msg.UpdatedAt = s.now()
	if err := s.store.UpdateMessageReactions(ctx, msg); err != nil {
		return nil, errors.ClassifyStoreError("persist reactions", err)
	}
	metrics.Inc(metrics.ReactionsToggled, nil)
	return msg, nil
}

// Search narrows by scope and type in the store, then applies a
// case-insensitive substring match on text and sender name, excluding
// messages deleted for the requesting user.
func (s *messageService) Search(ctx context.Context, msgType models.MessageType, scopeID, userID, query string) ([]models.Message, error) {
	if !s.flags.MessageSearch() {
		return nil, errors.NewValidationError("search", "message search is disabled")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewValidationError("query", "search query cannot be empty")
	}

	candidates, err := s.store.ScopeMessages(ctx, msgType, scopeID)
	if err != nil {
		return nil, errors.ClassifyStoreError("search messages", err)
	}

	needle := strings.ToLower(query)
	matches := make([]models.Message, 0)
	for _, msg := range candidates {
		if msg.IsDeletedFor(userID) {
			continue
		}
		if strings.Contains(strings.ToLower(msg.Text), needle) ||
			strings.Contains(strings.ToLower(msg.SenderName), needle) {
			matches = append(matches, msg)
		}
	}
	metrics.Inc(metrics.SearchesRun, nil)
	return matches, nil
}

func visibleTo(msgs []models.Message, userID string) []models.Message {
	out := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		if !msg.IsDeletedFor(userID) {
			out = append(out, msg)
		}
	}
	return out
}

func sanitizeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "file"
	}
	return base
}
