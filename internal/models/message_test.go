package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageTypeClassify(t *testing.T) {
	tests := []struct {
		name      string
		msgType   MessageType
		family    Family
		scopeKind ScopeKind
		wantErr   bool
	}{
		{"buddy chat", TypeChat, FamilyDiscussion, ScopeChat, false},
		{"course discussion", TypeCourseDiscussion, FamilyDiscussion, ScopeCourse, false},
		{"course private", TypeCoursePrivate, FamilyPrivate, ScopeCourse, false},
		{"course broadcast", TypeCourseBroadcast, FamilyBroadcast, ScopeCourse, false},
		{"trip discussion", TypeTripDiscussion, FamilyDiscussion, ScopeTrip, false},
		{"trip private", TypeTripPrivate, FamilyPrivate, ScopeTrip, false},
		{"trip broadcast", TypeTripBroadcast, FamilyBroadcast, ScopeTrip, false},
		{"unknown", MessageType("course_announce"), "", "", true},
		{"empty", MessageType(""), "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			family, scopeKind, err := tt.msgType.Classify()
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, tt.msgType.IsValid())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.family, family)
			assert.Equal(t, tt.scopeKind, scopeKind)
			assert.True(t, tt.msgType.IsValid())
		})
	}
}

func TestToggleReactionSelfInverse(t *testing.T) {
	msg := &Message{ID: "m1", Type: TypeChat}
	at := time.Now()

	msg.ToggleReaction("u1", "Ana", "🤿", at)
	require.Contains(t, msg.Reactions, "🤿")
	assert.Equal(t, 1, msg.Reactions["🤿"].Count)
	assert.Contains(t, msg.Reactions["🤿"].Users, "u1")

	msg.ToggleReaction("u1", "Ana", "🤿", at)
	assert.NotContains(t, msg.Reactions, "🤿", "second toggle must remove the emoji key entirely")
}

func TestToggleReactionCountMatchesUsers(t *testing.T) {
	msg := &Message{ID: "m1", Type: TypeChat}
	at := time.Now()

	msg.ToggleReaction("u1", "Ana", "👍", at)
	msg.ToggleReaction("u2", "Ben", "👍", at.Add(time.Second))
	msg.ToggleReaction("u3", "Cas", "👍", at.Add(2*time.Second))
	require.Contains(t, msg.Reactions, "👍")
	assert.Equal(t, 3, msg.Reactions["👍"].Count)
	assert.Len(t, msg.Reactions["👍"].Users, 3)

	msg.ToggleReaction("u2", "Ben", "👍", at.Add(3*time.Second))
	assert.Equal(t, 2, msg.Reactions["👍"].Count)
	assert.Len(t, msg.Reactions["👍"].Users, 2)
	assert.NotContains(t, msg.Reactions["👍"].Users, "u2")
}

func TestMarkBroadcastReadIdempotent(t *testing.T) {
	msg := &Message{
		ID:   "b1",
		Type: TypeCourseBroadcast,
		ReadStatus: map[string]ReadReceipt{
			"s1": {Read: false, Name: "Student One"},
			"s2": {Read: false, Name: "Student Two"},
		},
		TotalRecipients: 2,
	}

	now := time.Now()
	assert.True(t, msg.MarkBroadcastRead("s1", now))
	assert.Equal(t, 1, msg.ReadCount)
	assert.True(t, msg.ReadStatus["s1"].Read)
	assert.False(t, msg.ReadStatus["s2"].Read)

	// Repeating the same mark must not double count.
	assert.False(t, msg.MarkBroadcastRead("s1", now.Add(time.Minute)))
	assert.Equal(t, 1, msg.ReadCount)

	assert.True(t, msg.MarkBroadcastRead("s2", now.Add(time.Minute)))
	assert.Equal(t, 2, msg.ReadCount)

	// A non-recipient never joins the snapshot.
	assert.False(t, msg.MarkBroadcastRead("outsider", now))
	assert.Len(t, msg.ReadStatus, 2)
}

func TestMarkReadByIdempotent(t *testing.T) {
	msg := &Message{ID: "m1", Type: TypeChat}
	assert.True(t, msg.MarkReadBy("u1"))
	assert.False(t, msg.MarkReadBy("u1"))
	assert.Equal(t, []string{"u1"}, msg.ReadBy)
}

func TestCanEdit(t *testing.T) {
	now := time.Now()
	window := 24 * time.Hour

	tests := []struct {
		name    string
		msg     Message
		editor  string
		wantErr bool
	}{
		{
			name:   "sender within window",
			msg:    Message{Type: TypeChat, SenderID: "u1", Timestamp: now.Add(-23 * time.Hour)},
			editor: "u1",
		},
		{
			name:    "window expired",
			msg:     Message{Type: TypeChat, SenderID: "u1", Timestamp: now.Add(-25 * time.Hour)},
			editor:  "u1",
			wantErr: true,
		},
		{
			name:    "broadcast never editable",
			msg:     Message{Type: TypeTripBroadcast, SenderID: "u1", Timestamp: now},
			editor:  "u1",
			wantErr: true,
		},
		{
			name:    "not the sender",
			msg:     Message{Type: TypeChat, SenderID: "u1", Timestamp: now},
			editor:  "u2",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.CanEdit(tt.editor, now, window)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecordEdit(t *testing.T) {
	at := time.Now()
	msg := &Message{Type: TypeChat, SenderID: "u1", Text: "see you at the dock"}

	msg.RecordEdit("see you at the pier", "u1", at)
	require.Len(t, msg.EditHistory, 1)
	assert.Equal(t, "see you at the dock", msg.EditHistory[0].PreviousText)
	assert.Equal(t, "see you at the pier", msg.Text)
	assert.True(t, msg.IsEdited)
	require.NotNil(t, msg.LastEditedAt)
}

func TestSummarizeReceipts(t *testing.T) {
	early := time.Now().Add(-time.Hour)
	late := time.Now()
	msg := &Message{
		Type: TypeCourseBroadcast,
		ReadStatus: map[string]ReadReceipt{
			"s1": {Read: true, ReadAt: &early, Name: "Early Reader"},
			"s2": {Read: true, ReadAt: &late, Name: "Late Reader"},
			"s3": {Read: false, Name: "Beta"},
			"s4": {Read: false, Name: "Alpha"},
		},
	}

	summary := msg.SummarizeReceipts()
	require.Len(t, summary.Read, 2)
	assert.Equal(t, "s2", summary.Read[0].UserID, "most recent reader first")
	assert.Equal(t, "s1", summary.Read[1].UserID)
	require.Len(t, summary.Unread, 2)
	assert.Equal(t, "Alpha", summary.Unread[0].Name)
}

func TestShiftOverlaps(t *testing.T) {
	shift := &Shift{StaffID: "x", Date: "2024-06-10", StartTime: "11:00", EndTime: "19:00"}

	assert.True(t, shift.Overlaps("2024-06-10", "18:00", "20:00"))
	assert.False(t, shift.Overlaps("2024-06-10", "19:00", "21:00"), "back-to-back is not an overlap")
	assert.False(t, shift.Overlaps("2024-06-11", "18:00", "20:00"))
	assert.True(t, shift.Overlaps("2024-06-10", "08:00", "11:30"))
	assert.False(t, shift.Overlaps("2024-06-10", "08:00", "11:00"))
}

func TestTimeOffCovers(t *testing.T) {
	req := &TimeOffRequest{StartDate: "2024-06-09", EndDate: "2024-06-11", Status: TimeOffApproved}
	assert.True(t, req.Covers("2024-06-09"))
	assert.True(t, req.Covers("2024-06-10"))
	assert.True(t, req.Covers("2024-06-11"))
	assert.False(t, req.Covers("2024-06-12"))
}

func TestTypingStatusActive(t *testing.T) {
	now := time.Now()
	assert.True(t, TypingStatus{IsTyping: true, Timestamp: now.Add(-5 * time.Second)}.Active(now))
	assert.False(t, TypingStatus{IsTyping: true, Timestamp: now.Add(-11 * time.Second)}.Active(now), "stale entries count as not typing")
	assert.False(t, TypingStatus{IsTyping: false, Timestamp: now}.Active(now))
}
