package realtime

import (
	"testing"
	"time"

	"reefops/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTypingSetAndActiveUsers(t *testing.T) {
	r := NewTypingRegistry()
	r.Set(models.TypeCourseDiscussion, "c1", "u1", "Ana", true)
	r.Set(models.TypeCourseDiscussion, "c1", "u2", "Ben", true)

	names := r.ActiveUsers(models.TypeCourseDiscussion, "c1", "u3")
	assert.ElementsMatch(t, []string{"Ana", "Ben"}, names)

	// The requesting user is excluded from their own view.
	names = r.ActiveUsers(models.TypeCourseDiscussion, "c1", "u1")
	assert.ElementsMatch(t, []string{"Ben"}, names)
}

func TestTypingStopRemovesEntry(t *testing.T) {
	r := NewTypingRegistry()
	r.Set(models.TypeChat, "ch1", "u1", "Ana", true)
	r.Set(models.TypeChat, "ch1", "u1", "Ana", false)

	assert.Empty(t, r.ActiveUsers(models.TypeChat, "ch1", ""))
}

func TestTypingEntriesAreScopedByTypeAndID(t *testing.T) {
	r := NewTypingRegistry()
	r.Set(models.TypeCourseDiscussion, "c1", "u1", "Ana", true)

	assert.Empty(t, r.ActiveUsers(models.TypeCourseBroadcast, "c1", ""))
	assert.Empty(t, r.ActiveUsers(models.TypeCourseDiscussion, "c2", ""))
}

func TestTypingStaleEntriesTreatedAsNotTyping(t *testing.T) {
	r := NewTypingRegistry()
	current := time.Now()
	r.now = func() time.Time { return current }

	r.Set(models.TypeChat, "ch1", "u1", "Ana", true)
	assert.Len(t, r.ActiveUsers(models.TypeChat, "ch1", ""), 1)

	// Beyond the staleness window without a refresh the user no longer
	// counts as typing, even though no stop arrived.
	current = current.Add(models.TypingStaleness + time.Second)
	assert.Empty(t, r.ActiveUsers(models.TypeChat, "ch1", ""))
}

func TestTypingClearUser(t *testing.T) {
	r := NewTypingRegistry()
	r.Set(models.TypeChat, "ch1", "u1", "Ana", true)
	r.Set(models.TypeTripDiscussion, "t1", "u1", "Ana", true)
	r.Set(models.TypeChat, "ch1", "u2", "Ben", true)

	r.ClearUser("u1")
	assert.Empty(t, r.ActiveUsers(models.TypeTripDiscussion, "t1", ""))
	assert.ElementsMatch(t, []string{"Ben"}, r.ActiveUsers(models.TypeChat, "ch1", ""))
}

func TestEvictStaleDropsOldEntries(t *testing.T) {
	r := NewTypingRegistry()
	current := time.Now()
	r.now = func() time.Time { return current }

	r.Set(models.TypeChat, "ch1", "u1", "Ana", true)
	current = current.Add(models.TypingStaleness + time.Second)
	r.evictStale()

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.Empty(t, r.entries)
}

func TestTypingIgnoresUnknownType(t *testing.T) {
	r := NewTypingRegistry()
	r.Set(models.MessageType("bogus"), "x", "u1", "Ana", true)
	assert.Nil(t, r.ActiveUsers(models.MessageType("bogus"), "x", ""))
}
