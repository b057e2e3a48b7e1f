package feed

import (
	"sort"

	"reefops/internal/models"
)

// MergeMessages merges incoming messages into existing by ID and returns the
// combined list sorted ascending by timestamp.
//
// Broadcast messages that already exist locally are merged as a union rather
// than replaced: read receipts recorded by one reader must survive a snapshot
// produced before a different reader's update landed. All other messages are
// fully replaced by the incoming copy. The merge is commutative per message
// ID, so overlapping delivery from racing subscriptions is safe.
func MergeMessages(existing, incoming []models.Message) []models.Message {
	merged := make([]models.Message, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i := range merged {
		index[merged[i].ID] = i
	}

	for _, in := range incoming {
		pos, ok := index[in.ID]
		if !ok {
			index[in.ID] = len(merged)
			merged = append(merged, in)
			continue
		}
		if in.IsBroadcast() {
			merged[pos] = mergeBroadcast(merged[pos], in)
		} else {
			merged[pos] = in
		}
	}

	sortMessages(merged)
	return merged
}

// mergeBroadcast unions read tracking between the local and incoming copies of
// one broadcast message. Per receipt key a read entry always beats an unread
// one, so a stale snapshot can never erase recorded read progress; between two
// read entries the newer readAt wins. ReadCount takes the max and ReadBy is
// the deduplicated union. Every other field comes from the incoming copy.
func mergeBroadcast(local, incoming models.Message) models.Message {
	out := incoming

	if len(local.ReadStatus) > 0 {
		status := make(map[string]models.ReadReceipt, len(local.ReadStatus))
		for k, v := range local.ReadStatus {
			status[k] = v
		}
		for k, v := range incoming.ReadStatus {
			if prev, ok := status[k]; ok {
				status[k] = mergeReceipt(prev, v)
			} else {
				status[k] = v
			}
		}
		out.ReadStatus = status
	}

	if local.ReadCount > out.ReadCount {
		out.ReadCount = local.ReadCount
	}

	out.ReadBy = unionIDs(local.ReadBy, incoming.ReadBy)
	return out
}

// mergeReceipt picks the winning receipt for one recipient key. Read state is
// monotonic: once either side has read=true the merged entry is read.
func mergeReceipt(local, incoming models.ReadReceipt) models.ReadReceipt {
	if local.Read != incoming.Read {
		if local.Read {
			return local
		}
		return incoming
	}
	if local.ReadAt != nil && (incoming.ReadAt == nil || local.ReadAt.After(*incoming.ReadAt)) {
		return local
	}
	return incoming
}

func unionIDs(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func sortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
