package feed

import (
	"testing"
	"time"

	"reefops/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgAt(id string, ts time.Time) models.Message {
	return models.Message{
		ID:        id,
		Type:      models.TypeChat,
		ScopeID:   "ch1",
		SenderID:  "u1",
		Text:      "text-" + id,
		Timestamp: ts,
	}
}

func broadcastMsg(id string, ts time.Time, readers map[string]bool) models.Message {
	status := map[string]models.ReadReceipt{}
	count := 0
	for user, read := range readers {
		receipt := models.ReadReceipt{Read: read, Name: user}
		if read {
			at := ts.Add(time.Minute)
			receipt.ReadAt = &at
			count++
		}
		status[user] = receipt
	}
	return models.Message{
		ID:              id,
		Type:            models.TypeCourseBroadcast,
		ScopeID:         "c1",
		SenderID:        "instructor",
		Text:            "briefing",
		Timestamp:       ts,
		ReadStatus:      status,
		ReadCount:       count,
		TotalRecipients: len(status),
	}
}

func TestMergeAppendsAndSorts(t *testing.T) {
	base := time.Now().UTC()
	existing := []models.Message{msgAt("b", base.Add(2 * time.Minute))}
	incoming := []models.Message{msgAt("a", base), msgAt("c", base.Add(4 * time.Minute))}

	merged := MergeMessages(existing, incoming)
	require.Len(t, merged, 3)
	assert.Equal(t, "a", merged[0].ID)
	assert.Equal(t, "b", merged[1].ID)
	assert.Equal(t, "c", merged[2].ID)
}

func TestMergeReplacesNonBroadcast(t *testing.T) {
	base := time.Now().UTC()
	existing := []models.Message{msgAt("m1", base)}
	updated := msgAt("m1", base)
	updated.Text = "edited"
	updated.IsEdited = true

	merged := MergeMessages(existing, []models.Message{updated})
	require.Len(t, merged, 1)
	assert.Equal(t, "edited", merged[0].Text)
	assert.True(t, merged[0].IsEdited)
}

func TestMergeBroadcastUnionsReadState(t *testing.T) {
	base := time.Now().UTC()
	// Local copy knows A has read; the incoming snapshot only knows about B.
	local := broadcastMsg("b1", base, map[string]bool{"A": true, "B": false, "C": false})
	incoming := broadcastMsg("b1", base, map[string]bool{"A": false, "B": true, "C": false})

	merged := MergeMessages([]models.Message{local}, []models.Message{incoming})
	require.Len(t, merged, 1)

	got := merged[0]
	assert.True(t, got.ReadStatus["A"].Read, "prior read progress must survive")
	assert.True(t, got.ReadStatus["B"].Read)
	assert.False(t, got.ReadStatus["C"].Read)
	assert.GreaterOrEqual(t, got.ReadCount, 1)
}

func TestMergeBroadcastReadIsMonotonicPerKey(t *testing.T) {
	base := time.Now().UTC()
	// A full snapshot produced before A's receipt landed reports A unread.
	local := broadcastMsg("b1", base, map[string]bool{"A": true, "B": false})
	stale := broadcastMsg("b1", base, map[string]bool{"A": false, "B": true})

	merged := MergeMessages([]models.Message{local}, []models.Message{stale})
	require.Len(t, merged, 1)
	assert.True(t, merged[0].ReadStatus["A"].Read, "recorded read must not be erased")
	assert.True(t, merged[0].ReadStatus["B"].Read)
	require.NotNil(t, merged[0].ReadStatus["A"].ReadAt)
}

func TestMergeReceiptNewerReadAtWins(t *testing.T) {
	early := time.Now().UTC()
	late := early.Add(time.Hour)
	a := models.ReadReceipt{Read: true, ReadAt: &early, Name: "old name"}
	b := models.ReadReceipt{Read: true, ReadAt: &late, Name: "new name"}

	assert.Equal(t, b, mergeReceipt(a, b))
	assert.Equal(t, b, mergeReceipt(b, a))
}

func TestMergeBroadcastReadCountIsMax(t *testing.T) {
	base := time.Now().UTC()
	local := broadcastMsg("b1", base, map[string]bool{"A": true, "B": true})
	incoming := broadcastMsg("b1", base, map[string]bool{"A": true, "B": false})

	merged := MergeMessages([]models.Message{local}, []models.Message{incoming})
	assert.Equal(t, 2, merged[0].ReadCount)
}

func TestMergeIsIdempotent(t *testing.T) {
	base := time.Now().UTC()
	msgs := []models.Message{msgAt("a", base), msgAt("b", base.Add(time.Minute)), msgAt("c", base.Add(2*time.Minute))}

	merged := MergeMessages(msgs, msgs)
	require.Len(t, merged, len(msgs))
	for i := range msgs {
		assert.Equal(t, msgs[i], merged[i])
	}
}

func TestMergeIsCommutativePerID(t *testing.T) {
	base := time.Now().UTC()
	a := broadcastMsg("b1", base, map[string]bool{"A": true, "B": false})
	b := broadcastMsg("b1", base, map[string]bool{"A": false, "B": true})

	ab := MergeMessages([]models.Message{a}, []models.Message{b})
	ba := MergeMessages([]models.Message{b}, []models.Message{a})

	require.Len(t, ab, 1)
	require.Len(t, ba, 1)
	assert.Equal(t, ab[0].ReadCount, ba[0].ReadCount)
	for user := range ab[0].ReadStatus {
		assert.Equal(t, ab[0].ReadStatus[user].Read, ba[0].ReadStatus[user].Read)
	}
}

func TestMergeTimestampTieBreaksOnID(t *testing.T) {
	base := time.Now().UTC()
	merged := MergeMessages([]models.Message{msgAt("z", base)}, []models.Message{msgAt("a", base)})
	require.Len(t, merged, 2)
	assert.Equal(t, "a", merged[0].ID)
}

func TestUnionIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, unionIDs([]string{"a", "b"}, []string{"b", "c"}))
	assert.Equal(t, []string{"x"}, unionIDs(nil, []string{"x"}))
}
