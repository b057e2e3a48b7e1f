package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"reefops/internal/models"
)

// User operations

func (d *Database) UpsertUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, display_name, email, role)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name,
			email = excluded.email, role = excluded.role`

	if _, err := d.db.ExecContext(ctx, query, user.ID, user.DisplayName, user.Email, user.Role); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetUser returns the user or (nil, nil) when absent.
func (d *Database) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.db.QueryRowContext(ctx,
		`SELECT id, display_name, email, role, created_at FROM users WHERE id = ?`, id).
		Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UsersByRole lists every user holding the given role.
func (d *Database) UsersByRole(ctx context.Context, role string) ([]models.User, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, display_name, email, role, created_at FROM users WHERE role = ? ORDER BY display_name`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by role: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Chat operations

func encodeIDList(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	return marshalField(ids)
}

func (d *Database) SaveChat(ctx context.Context, chat *models.Chat) error {
	participants, err := encodeIDList(chat.Participants)
	if err != nil {
		return err
	}
	active, err := encodeIDList(chat.ActiveParticipants)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO chats (id, participants, active_participants)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET active_participants = excluded.active_participants`

	if _, err := d.db.ExecContext(ctx, query, chat.ID, participants, active); err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

func (d *Database) scanChat(s rowScanner) (*models.Chat, error) {
	var chat models.Chat
	var participants, active string
	if err := s.Scan(&chat.ID, &participants, &active, &chat.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(participants), &chat.Participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}
	if err := json.Unmarshal([]byte(active), &chat.ActiveParticipants); err != nil {
		return nil, fmt.Errorf("failed to decode active participants: %w", err)
	}
	return &chat, nil
}

// GetChat returns the chat or (nil, nil) when absent.
func (d *Database) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	chat, err := d.scanChat(d.db.QueryRowContext(ctx,
		`SELECT id, participants, active_participants, created_at FROM chats WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return chat, nil
}

// FindChatByParticipants returns the chat whose creation-time membership is
// exactly the given pair, or (nil, nil). Participants are stored sorted so
// the lookup is an exact match.
func (d *Database) FindChatByParticipants(ctx context.Context, userA, userB string) (*models.Chat, error) {
	ids := []string{userA, userB}
	sort.Strings(ids)
	participants, err := encodeIDList(ids)
	if err != nil {
		return nil, err
	}

	chat, err := d.scanChat(d.db.QueryRowContext(ctx,
		`SELECT id, participants, active_participants, created_at FROM chats WHERE participants = ?`,
		participants))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chat: %w", err)
	}
	return chat, nil
}

// Buddy operations

func buddyPair(userA, userB string) (string, string) {
	if userA > userB {
		return userB, userA
	}
	return userA, userB
}

func (d *Database) SaveBuddy(ctx context.Context, userA, userB string) error {
	a, b := buddyPair(userA, userB)
	if _, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO buddies (user_a, user_b) VALUES (?, ?)`, a, b); err != nil {
		return fmt.Errorf("failed to save buddy pair: %w", err)
	}
	return nil
}

func (d *Database) AreBuddies(ctx context.Context, userA, userB string) (bool, error) {
	a, b := buddyPair(userA, userB)
	var one int
	err := d.db.QueryRowContext(ctx,
		`SELECT 1 FROM buddies WHERE user_a = ? AND user_b = ?`, a, b).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check buddy pair: %w", err)
	}
	return true, nil
}

// Course operations

func (d *Database) SaveCourse(ctx context.Context, course *models.Course) error {
	students, err := encodeIDList(course.StudentIDs)
	if err != nil {
		return err
	}
	assistants, err := encodeIDList(course.AssistantIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO courses (id, name, instructor_id, student_ids, assistant_ids)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			instructor_id = excluded.instructor_id,
			student_ids = excluded.student_ids,
			assistant_ids = excluded.assistant_ids`

	if _, err := d.db.ExecContext(ctx, query, course.ID, course.Name, course.InstructorID, students, assistants); err != nil {
		return fmt.Errorf("failed to save course: %w", err)
	}
	return nil
}

// GetCourse returns the course or (nil, nil) when absent.
func (d *Database) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	var students, assistants string
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, instructor_id, student_ids, assistant_ids FROM courses WHERE id = ?`, id).
		Scan(&course.ID, &course.Name, &course.InstructorID, &students, &assistants)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if err := json.Unmarshal([]byte(students), &course.StudentIDs); err != nil {
		return nil, fmt.Errorf("failed to decode student IDs: %w", err)
	}
	if err := json.Unmarshal([]byte(assistants), &course.AssistantIDs); err != nil {
		return nil, fmt.Errorf("failed to decode assistant IDs: %w", err)
	}
	return &course, nil
}

// Trip operations

func (d *Database) SaveTrip(ctx context.Context, trip *models.Trip) error {
	participants, err := encodeIDList(trip.ParticipantIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO trips (id, name, leader_id, participant_ids)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			leader_id = excluded.leader_id,
			participant_ids = excluded.participant_ids`

	if _, err := d.db.ExecContext(ctx, query, trip.ID, trip.Name, trip.LeaderID, participants); err != nil {
		return fmt.Errorf("failed to save trip: %w", err)
	}
	return nil
}

// GetTrip returns the trip or (nil, nil) when absent.
func (d *Database) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	var trip models.Trip
	var participants string
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, leader_id, participant_ids FROM trips WHERE id = ?`, id).
		Scan(&trip.ID, &trip.Name, &trip.LeaderID, &participants)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	if err := json.Unmarshal([]byte(participants), &trip.ParticipantIDs); err != nil {
		return nil, fmt.Errorf("failed to decode participant IDs: %w", err)
	}
	return &trip, nil
}

// Notification operations

// InsertNotifications writes one fan-out batch atomically.
func (d *Database) InsertNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO notifications (id, user_id, message_id, message_type, scope_id, sender_name, preview, seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, n := range notifications {
		if _, err := tx.ExecContext(ctx, query,
			n.ID, n.UserID, n.MessageID, n.MessageType, n.ScopeID,
			n.SenderName, n.Preview, n.Seen, n.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit notifications: %w", err)
	}
	return nil
}

// UnseenNotifications lists a user's unseen notifications, newest first.
func (d *Database) UnseenNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, message_id, message_type, scope_id, sender_name, preview, seen, created_at
		FROM notifications
		WHERE user_id = ? AND seen = 0
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.MessageID, &n.MessageType,
			&n.ScopeID, &n.SenderName, &n.Preview, &n.Seen, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationsSeen flags all of a user's notifications seen up to now.
func (d *Database) MarkNotificationsSeen(ctx context.Context, userID string, at time.Time) error {
	if _, err := d.db.ExecContext(ctx,
		`UPDATE notifications SET seen = 1 WHERE user_id = ? AND created_at <= ?`,
		userID, at); err != nil {
		return fmt.Errorf("failed to mark notifications seen: %w", err)
	}
	return nil
}
