package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"reefops/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*Database, context.Context) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "reefops-test.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, context.Background()
}

func testMessage(id string, msgType models.MessageType, scopeID string, ts time.Time) *models.Message {
	return &models.Message{
		ID:         id,
		Type:       msgType,
		ScopeID:    scopeID,
		SenderID:   "u1",
		SenderName: "Ana Reyes",
		Text:       "surface interval at 14:00",
		Timestamp:  ts,
	}
}

func TestInsertAndGetMessage(t *testing.T) {
	db, ctx := setupTestDB(t)

	ts := time.Now().UTC().Truncate(time.Second)
	msg := testMessage("m1", models.TypeCourseDiscussion, "c1", ts)
	msg.Reactions = map[string]*models.Reaction{
		"👍": {Count: 1, Users: map[string]models.ReactionUser{"u2": {Name: "Ben", Timestamp: ts}}},
	}
	require.NoError(t, db.InsertMessage(ctx, msg))

	got, err := db.GetMessage(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, models.TypeCourseDiscussion, got.Type)
	assert.Equal(t, "surface interval at 14:00", got.Text)
	assert.Equal(t, "Ana Reyes", got.SenderName)
	require.Contains(t, got.Reactions, "👍")
	assert.Equal(t, 1, got.Reactions["👍"].Count)

	missing, err := db.GetMessage(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRootMessagesWindowAscending(t *testing.T) {
	db, ctx := setupTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		msg := testMessage(string(rune('a'+i)), models.TypeChat, "ch1", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, db.InsertMessage(ctx, msg))
	}
	// A reply must not appear in the root window.
	reply := testMessage("r1", models.TypeChat, "ch1", base.Add(10*time.Minute))
	reply.ParentMessageID = "a"
	reply.ThreadInfo = &models.ThreadInfo{RootMessageID: "a", Level: 1}
	require.NoError(t, db.InsertMessage(ctx, reply))

	window, err := db.RootMessagesWindow(ctx, models.TypeChat, "ch1", 3)
	require.NoError(t, err)
	require.Len(t, window, 3)
	assert.Equal(t, "c", window[0].ID)
	assert.Equal(t, "e", window[2].ID)
	for i := 1; i < len(window); i++ {
		assert.False(t, window[i].Timestamp.Before(window[i-1].Timestamp))
	}
}

func TestRootMessagesBeforePagination(t *testing.T) {
	db, ctx := setupTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	ids := []string{"m1", "m2", "m3", "m4", "m5"}
	for i, id := range ids {
		require.NoError(t, db.InsertMessage(ctx, testMessage(id, models.TypeChat, "ch1", base.Add(time.Duration(i)*time.Minute))))
	}

	cursor, err := db.GetMessage(ctx, "m4")
	require.NoError(t, err)

	page, hasMore, err := db.RootMessagesBefore(ctx, models.TypeChat, "ch1", cursor, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m2", page[0].ID)
	assert.Equal(t, "m3", page[1].ID)
	assert.True(t, hasMore, "full page signals more may exist")

	cursor = &page[0]
	page, hasMore, err = db.RootMessagesBefore(ctx, models.TypeChat, "ch1", cursor, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "m1", page[0].ID)
	assert.False(t, hasMore)
}

func TestRootMessagesBeforeNilCursorStartsAtNewest(t *testing.T) {
	db, ctx := setupTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, db.InsertMessage(ctx, testMessage(id, models.TypeChat, "ch1", base.Add(time.Duration(i)*time.Minute))))
	}

	page, hasMore, err := db.RootMessagesBefore(ctx, models.TypeChat, "ch1", nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m2", page[0].ID)
	assert.Equal(t, "m3", page[1].ID)
	assert.True(t, hasMore)
}

func TestThreadMessagesOrdering(t *testing.T) {
	db, ctx := setupTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	root := testMessage("root", models.TypeTripDiscussion, "t1", base)
	require.NoError(t, db.InsertMessage(ctx, root))

	reply := testMessage("reply1", models.TypeTripDiscussion, "t1", base.Add(time.Minute))
	reply.ParentMessageID = "root"
	reply.ThreadInfo = &models.ThreadInfo{RootMessageID: "root", Level: 1}
	require.NoError(t, db.InsertMessage(ctx, reply))

	nested := testMessage("reply2", models.TypeTripDiscussion, "t1", base.Add(2*time.Minute))
	nested.ParentMessageID = "reply1"
	nested.ThreadInfo = &models.ThreadInfo{RootMessageID: "root", Level: 2}
	require.NoError(t, db.InsertMessage(ctx, nested))

	thread, err := db.ThreadMessages(ctx, "root")
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "root", thread[0].ID)
	assert.Equal(t, "reply1", thread[1].ID)
	assert.Equal(t, "reply2", thread[2].ID)
	assert.Equal(t, 2, thread[2].ThreadInfo.Level)
}

func TestBumpReplyCounters(t *testing.T) {
	db, ctx := setupTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, db.InsertMessage(ctx, testMessage("p1", models.TypeChat, "ch1", base)))

	at := base.Add(time.Minute)
	require.NoError(t, db.BumpReplyCounters(ctx, "p1", at))
	require.NoError(t, db.BumpReplyCounters(ctx, "p1", at.Add(time.Minute)))

	parent, err := db.GetMessage(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, parent.ReplyCount)
	require.NotNil(t, parent.LastReplyAt)
}

func TestPurgeChat(t *testing.T) {
	db, ctx := setupTestDB(t)

	chat := &models.Chat{ID: "ch1", Participants: []string{"u1", "u2"}, ActiveParticipants: []string{"u1", "u2"}}
	require.NoError(t, db.SaveChat(ctx, chat))
	require.NoError(t, db.InsertMessage(ctx, testMessage("m1", models.TypeChat, "ch1", time.Now().UTC())))

	require.NoError(t, db.PurgeChat(ctx, "ch1"))

	gone, err := db.GetChat(ctx, "ch1")
	require.NoError(t, err)
	assert.Nil(t, gone)
	msg, err := db.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestMarkScopeMessagesDeletedFor(t *testing.T) {
	db, ctx := setupTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, db.InsertMessage(ctx, testMessage("m1", models.TypeChat, "ch1", base)))
	require.NoError(t, db.InsertMessage(ctx, testMessage("m2", models.TypeChat, "ch1", base.Add(time.Minute))))

	require.NoError(t, db.MarkScopeMessagesDeletedFor(ctx, models.TypeChat, "ch1", "u2"))

	for _, id := range []string{"m1", "m2"} {
		msg, err := db.GetMessage(ctx, id)
		require.NoError(t, err)
		assert.True(t, msg.IsDeletedFor("u2"))
		assert.False(t, msg.IsDeletedFor("u1"))
	}
}

func TestFindChatByParticipants(t *testing.T) {
	db, ctx := setupTestDB(t)

	chat := &models.Chat{ID: "ch9", Participants: []string{"u1", "u2"}, ActiveParticipants: []string{"u1", "u2"}}
	// Save sorted so lookup is deterministic regardless of argument order.
	require.NoError(t, db.SaveChat(ctx, chat))

	found, err := db.FindChatByParticipants(ctx, "u2", "u1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "ch9", found.ID)

	none, err := db.FindChatByParticipants(ctx, "u1", "u3")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestBuddies(t *testing.T) {
	db, ctx := setupTestDB(t)

	require.NoError(t, db.SaveBuddy(ctx, "u2", "u1"))

	areBuddies, err := db.AreBuddies(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, areBuddies)

	notBuddies, err := db.AreBuddies(ctx, "u1", "u3")
	require.NoError(t, err)
	assert.False(t, notBuddies)
}

func TestShiftLifecycle(t *testing.T) {
	db, ctx := setupTestDB(t)

	shift := &models.Shift{ID: "s1", StaffID: "x", Date: "2024-06-10", StartTime: "11:00", EndTime: "19:00", Role: "divemaster"}
	require.NoError(t, db.InsertShift(ctx, shift))

	shifts, err := db.StaffShiftsOn(ctx, "x", "2024-06-10")
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, "11:00", shifts[0].StartTime)

	shift.EndTime = "18:00"
	require.NoError(t, db.UpdateShift(ctx, shift))
	got, err := db.GetShift(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "18:00", got.EndTime)

	require.NoError(t, db.DeleteShift(ctx, "s1"))
	gone, err := db.GetShift(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestTimeOffDecision(t *testing.T) {
	db, ctx := setupTestDB(t)

	req := &models.TimeOffRequest{ID: "to1", StaffID: "x", StartDate: "2024-06-09", EndDate: "2024-06-11", Status: models.TimeOffPending}
	require.NoError(t, db.InsertTimeOff(ctx, req))

	require.NoError(t, db.DecideTimeOff(ctx, "to1", models.TimeOffApproved, "mgr", time.Now().UTC()))

	covering, err := db.ApprovedTimeOffCovering(ctx, "x", "2024-06-10")
	require.NoError(t, err)
	require.Len(t, covering, 1)
	assert.Equal(t, models.TimeOffApproved, covering[0].Status)

	// Deciding twice fails: the request is no longer pending.
	err = db.DecideTimeOff(ctx, "to1", models.TimeOffDenied, "mgr", time.Now().UTC())
	assert.Error(t, err)
}

func TestWatchScopeNotifies(t *testing.T) {
	db, ctx := setupTestDB(t)

	ch, cancel := db.WatchScope(models.TypeChat, "ch1")
	defer cancel()

	require.NoError(t, db.InsertMessage(ctx, testMessage("m1", models.TypeChat, "ch1", time.Now().UTC())))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected watcher notification after insert")
	}
}
