package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"reefops/internal/models"
)

const messageColumns = `
	id, type, scope_id, sender_id, sender_name, text, attachment, timestamp,
	recipient_id, read_by, read_status, read_count, total_recipients,
	deleted_for, reactions, parent_message_id, thread_root_id, thread_level,
	reply_count, last_reply_at, total_thread_replies, last_thread_reply_at,
	is_edited, last_edited_at, edit_history, created_at, updated_at`

func marshalField(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode field: %w", err)
	}
	return string(data), nil
}

type messageRow struct {
	attachment  sql.NullString
	readBy      string
	readStatus  sql.NullString
	deletedFor  string
	reactions   string
	threadRoot  string
	threadLevel int
	lastReply   sql.NullTime
	lastThread  sql.NullTime
	lastEdited  sql.NullTime
	editHistory string
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *Database) scanMessage(s rowScanner) (*models.Message, error) {
	var msg models.Message
	var row messageRow
	var encText, encSenderName string

	err := s.Scan(
		&msg.ID, &msg.Type, &msg.ScopeID, &msg.SenderID, &encSenderName,
		&encText, &row.attachment, &msg.Timestamp, &msg.RecipientID,
		&row.readBy, &row.readStatus, &msg.ReadCount, &msg.TotalRecipients,
		&row.deletedFor, &row.reactions, &msg.ParentMessageID,
		&row.threadRoot, &row.threadLevel, &msg.ReplyCount, &row.lastReply,
		&msg.TotalThreadReplies, &row.lastThread, &msg.IsEdited,
		&row.lastEdited, &row.editHistory, &msg.CreatedAt, &msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.Text, err = d.encryptor.DecryptIfEnabled(encText)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt message text: %w", err)
	}
	msg.SenderName, err = d.encryptor.DecryptIfEnabled(encSenderName)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt sender name: %w", err)
	}

	if row.attachment.Valid && row.attachment.String != "" {
		msg.Attachment = &models.FileAttachment{}
		if err := json.Unmarshal([]byte(row.attachment.String), msg.Attachment); err != nil {
			return nil, fmt.Errorf("failed to decode attachment: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(row.readBy), &msg.ReadBy); err != nil {
		return nil, fmt.Errorf("failed to decode read_by: %w", err)
	}
	if row.readStatus.Valid && row.readStatus.String != "" {
		if err := json.Unmarshal([]byte(row.readStatus.String), &msg.ReadStatus); err != nil {
			return nil, fmt.Errorf("failed to decode read_status: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(row.deletedFor), &msg.DeletedFor); err != nil {
		return nil, fmt.Errorf("failed to decode deleted_for: %w", err)
	}
	if err := json.Unmarshal([]byte(row.reactions), &msg.Reactions); err != nil {
		return nil, fmt.Errorf("failed to decode reactions: %w", err)
	}

	encHistory, err := d.encryptor.DecryptIfEnabled(row.editHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt edit history: %w", err)
	}
	if encHistory != "" {
		if err := json.Unmarshal([]byte(encHistory), &msg.EditHistory); err != nil {
			return nil, fmt.Errorf("failed to decode edit_history: %w", err)
		}
	}

	if row.threadRoot != "" {
		msg.ThreadInfo = &models.ThreadInfo{RootMessageID: row.threadRoot, Level: row.threadLevel}
	}
	if row.lastReply.Valid {
		t := row.lastReply.Time
		msg.LastReplyAt = &t
	}
	if row.lastThread.Valid {
		t := row.lastThread.Time
		msg.LastThreadReplyAt = &t
	}
	if row.lastEdited.Valid {
		t := row.lastEdited.Time
		msg.LastEditedAt = &t
	}

	return &msg, nil
}

func (d *Database) messageWriteFields(msg *models.Message) (encText, encSenderName string, attachment interface{}, readBy, readStatus interface{}, deletedFor, reactions, threadRoot string, threadLevel int, editHistory string, err error) {
	encText, err = d.encryptor.EncryptIfEnabled(msg.Text)
	if err != nil {
		return
	}
	encSenderName, err = d.encryptor.EncryptIfEnabled(msg.SenderName)
	if err != nil {
		return
	}

	if msg.Attachment != nil {
		var s string
		s, err = marshalField(msg.Attachment)
		if err != nil {
			return
		}
		attachment = s
	}

	if msg.ReadBy == nil {
		msg.ReadBy = []string{}
	}
	readBy, err = marshalField(msg.ReadBy)
	if err != nil {
		return
	}

	if msg.ReadStatus != nil {
		var s string
		s, err = marshalField(msg.ReadStatus)
		if err != nil {
			return
		}
		readStatus = s
	}

	if msg.DeletedFor == nil {
		msg.DeletedFor = []string{}
	}
	deletedFor, err = marshalField(msg.DeletedFor)
	if err != nil {
		return
	}

	if msg.Reactions == nil {
		msg.Reactions = map[string]*models.Reaction{}
	}
	reactions, err = marshalField(msg.Reactions)
	if err != nil {
		return
	}

	if msg.ThreadInfo != nil {
		threadRoot = msg.ThreadInfo.RootMessageID
		threadLevel = msg.ThreadInfo.Level
	}

	if msg.EditHistory == nil {
		msg.EditHistory = []models.EditRecord{}
	}
	historyJSON, err2 := marshalField(msg.EditHistory)
	if err2 != nil {
		err = err2
		return
	}
	editHistory, err = d.encryptor.EncryptIfEnabled(historyJSON)
	return
}

// InsertMessage persists a new message and wakes the scope's watchers.
func (d *Database) InsertMessage(ctx context.Context, msg *models.Message) error {
	encText, encSenderName, attachment, readBy, readStatus, deletedFor, reactions, threadRoot, threadLevel, editHistory, err := d.messageWriteFields(msg)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO messages (
			id, type, scope_id, sender_id, sender_name, text, attachment,
			timestamp, recipient_id, read_by, read_status, read_count,
			total_recipients, deleted_for, reactions, parent_message_id,
			thread_root_id, thread_level, reply_count, last_reply_at,
			total_thread_replies, last_thread_reply_at, is_edited,
			last_edited_at, edit_history, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	_, err = d.db.ExecContext(ctx, query,
		msg.ID, msg.Type, msg.ScopeID, msg.SenderID, encSenderName, encText,
		attachment, msg.Timestamp, msg.RecipientID, readBy, readStatus,
		msg.ReadCount, msg.TotalRecipients, deletedFor, reactions,
		msg.ParentMessageID, threadRoot, threadLevel, msg.ReplyCount, nil,
		msg.TotalThreadReplies, nil, msg.IsEdited, nil, editHistory, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	d.notifyScope(msg.Type, msg.ScopeID)
	return nil
}

// GetMessage returns the message or (nil, nil) when absent.
func (d *Database) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT` + messageColumns + ` FROM messages WHERE id = ?`
	msg, err := d.scanMessage(d.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

func (d *Database) collectMessages(rows *sql.Rows) ([]models.Message, error) {
	defer func() { _ = rows.Close() }()

	var messages []models.Message
	for rows.Next() {
		msg, err := d.scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// RootMessagesWindow returns the newest `limit` root messages of a scope
// in ascending timestamp order.
func (d *Database) RootMessagesWindow(ctx context.Context, msgType models.MessageType, scopeID string, limit int) ([]models.Message, error) {
	query := `SELECT` + messageColumns + `
		FROM messages
		WHERE type = ? AND scope_id = ? AND parent_message_id = ''
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`

	rows, err := d.db.QueryContext(ctx, query, msgType, scopeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query message window: %w", err)
	}
	messages, err := d.collectMessages(rows)
	if err != nil {
		return nil, err
	}
	reverseMessages(messages)
	return messages, nil
}

// RootMessagesBefore returns one page of root messages strictly older than
// the cursor message, ascending, plus whether more pages may exist. A nil
// cursor starts from the newest message.
func (d *Database) RootMessagesBefore(ctx context.Context, msgType models.MessageType, scopeID string, before *models.Message, limit int) ([]models.Message, bool, error) {
	query := `SELECT` + messageColumns + `
		FROM messages
		WHERE type = ? AND scope_id = ? AND parent_message_id = ''`
	args := []interface{}{msgType, scopeID}
	if before != nil {
		query += ` AND (timestamp < ? OR (timestamp = ? AND id < ?))`
		args = append(args, before.Timestamp, before.Timestamp, before.ID)
	}
	query += `
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query older messages: %w", err)
	}
	messages, err := d.collectMessages(rows)
	if err != nil {
		return nil, false, err
	}

	// A full page signals more may exist without an extra round trip.
	hasMore := len(messages) == limit
	reverseMessages(messages)
	return messages, hasMore, nil
}

// ScopeMessages returns every message of a scope (roots and replies) in
// ascending timestamp order, for search.
func (d *Database) ScopeMessages(ctx context.Context, msgType models.MessageType, scopeID string) ([]models.Message, error) {
	query := `SELECT` + messageColumns + `
		FROM messages
		WHERE type = ? AND scope_id = ?
		ORDER BY timestamp ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query, msgType, scopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scope messages: %w", err)
	}
	return d.collectMessages(rows)
}

// ThreadMessages returns all messages sharing a thread root, ordered by
// (level, timestamp) ascending. The root itself is included.
func (d *Database) ThreadMessages(ctx context.Context, rootID string) ([]models.Message, error) {
	query := `SELECT` + messageColumns + `
		FROM messages
		WHERE id = ? OR thread_root_id = ?
		ORDER BY thread_level ASC, timestamp ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query, rootID, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to query thread: %w", err)
	}
	return d.collectMessages(rows)
}

// UpdateMessageEdit persists an edit: new text, edit markers and history.
func (d *Database) UpdateMessageEdit(ctx context.Context, msg *models.Message) error {
	encText, err := d.encryptor.EncryptIfEnabled(msg.Text)
	if err != nil {
		return fmt.Errorf("failed to encrypt message text: %w", err)
	}
	historyJSON, err := marshalField(msg.EditHistory)
	if err != nil {
		return err
	}
	encHistory, err := d.encryptor.EncryptIfEnabled(historyJSON)
	if err != nil {
		return fmt.Errorf("failed to encrypt edit history: %w", err)
	}

	query := `
		UPDATE messages
		SET text = ?, is_edited = 1, last_edited_at = ?, edit_history = ?, updated_at = ?
		WHERE id = ?`

	result, err := d.db.ExecContext(ctx, query, encText, msg.LastEditedAt, encHistory, time.Now().UTC(), msg.ID)
	if err != nil {
		return fmt.Errorf("failed to update message text: %w", err)
	}
	if err := requireRow(result, msg.ID); err != nil {
		return err
	}

	d.notifyScope(msg.Type, msg.ScopeID)
	return nil
}

// UpdateMessageReadState persists readBy or broadcast read status.
func (d *Database) UpdateMessageReadState(ctx context.Context, msg *models.Message) error {
	readBy, err := marshalField(msg.ReadBy)
	if err != nil {
		return err
	}
	var readStatus interface{}
	if msg.ReadStatus != nil {
		s, err := marshalField(msg.ReadStatus)
		if err != nil {
			return err
		}
		readStatus = s
	}

	query := `
		UPDATE messages
		SET read_by = ?, read_status = ?, read_count = ?, updated_at = ?
		WHERE id = ?`

	result, err := d.db.ExecContext(ctx, query, readBy, readStatus, msg.ReadCount, time.Now().UTC(), msg.ID)
	if err != nil {
		return fmt.Errorf("failed to update read state: %w", err)
	}
	if err := requireRow(result, msg.ID); err != nil {
		return err
	}

	d.notifyScope(msg.Type, msg.ScopeID)
	return nil
}

// UpdateMessageReactions persists the full reaction map of one message.
func (d *Database) UpdateMessageReactions(ctx context.Context, msg *models.Message) error {
	reactions, err := marshalField(msg.Reactions)
	if err != nil {
		return err
	}

	result, err := d.db.ExecContext(ctx,
		`UPDATE messages SET reactions = ?, updated_at = ? WHERE id = ?`,
		reactions, time.Now().UTC(), msg.ID)
	if err != nil {
		return fmt.Errorf("failed to update reactions: %w", err)
	}
	if err := requireRow(result, msg.ID); err != nil {
		return err
	}

	d.notifyScope(msg.Type, msg.ScopeID)
	return nil
}

// UpdateMessageDeletedFor persists a per-user tombstone set.
func (d *Database) UpdateMessageDeletedFor(ctx context.Context, msg *models.Message) error {
	deletedFor, err := marshalField(msg.DeletedFor)
	if err != nil {
		return err
	}

	result, err := d.db.ExecContext(ctx,
		`UPDATE messages SET deleted_for = ?, updated_at = ? WHERE id = ?`,
		deletedFor, time.Now().UTC(), msg.ID)
	if err != nil {
		return fmt.Errorf("failed to update deleted_for: %w", err)
	}
	if err := requireRow(result, msg.ID); err != nil {
		return err
	}

	d.notifyScope(msg.Type, msg.ScopeID)
	return nil
}

// BumpReplyCounters atomically increments the direct parent's reply count.
func (d *Database) BumpReplyCounters(ctx context.Context, parentID string, at time.Time) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE messages SET reply_count = reply_count + 1, last_reply_at = ?, updated_at = ? WHERE id = ?`,
		at, time.Now().UTC(), parentID)
	if err != nil {
		return fmt.Errorf("failed to bump reply counters: %w", err)
	}
	return requireRow(result, parentID)
}

// BumpThreadCounters atomically increments the thread root's counters.
func (d *Database) BumpThreadCounters(ctx context.Context, rootID string, at time.Time) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE messages SET total_thread_replies = total_thread_replies + 1, last_thread_reply_at = ?, updated_at = ? WHERE id = ?`,
		at, time.Now().UTC(), rootID)
	if err != nil {
		return fmt.Errorf("failed to bump thread counters: %w", err)
	}
	return requireRow(result, rootID)
}

// MarkScopeMessagesDeletedFor tombstones every message of a scope for one
// user, inside a single transaction.
func (d *Database) MarkScopeMessagesDeletedFor(ctx context.Context, msgType models.MessageType, scopeID, userID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, deleted_for FROM messages WHERE type = ? AND scope_id = ?`,
		msgType, scopeID)
	if err != nil {
		return fmt.Errorf("failed to list scope messages: %w", err)
	}

	type pending struct {
		id         string
		deletedFor []string
	}
	var updates []pending
	for rows.Next() {
		var id, deletedForJSON string
		if err := rows.Scan(&id, &deletedForJSON); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan message: %w", err)
		}
		var deletedFor []string
		if err := json.Unmarshal([]byte(deletedForJSON), &deletedFor); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to decode deleted_for: %w", err)
		}
		already := false
		for _, u := range deletedFor {
			if u == userID {
				already = true
				break
			}
		}
		if !already {
			updates = append(updates, pending{id: id, deletedFor: append(deletedFor, userID)})
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	now := time.Now().UTC()
	for _, u := range updates {
		deletedFor, err := marshalField(u.deletedFor)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE messages SET deleted_for = ?, updated_at = ? WHERE id = ?`,
			deletedFor, now, u.id); err != nil {
			return fmt.Errorf("failed to tombstone message %s: %w", u.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tombstones: %w", err)
	}

	d.notifyScope(msgType, scopeID)
	return nil
}

// PurgeChat deletes a chat, its messages and its notifications in one
// atomic batch. Used when the last participant leaves.
func (d *Database) PurgeChat(ctx context.Context, chatID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE type = ? AND scope_id = ?`,
		models.TypeChat, chatID); err != nil {
		return fmt.Errorf("failed to delete chat messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM notifications WHERE scope_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to delete chat notifications: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chats WHERE id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chat purge: %w", err)
	}

	d.notifyScope(models.TypeChat, chatID)
	return nil
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no message found with ID %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func reverseMessages(messages []models.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
