package feed

import (
	"sync"

	"reefops/internal/models"
)

// State caches one conversation view's messages together with the loading,
// search, upload, and typing-presence slots the UI renders from. All
// transitions go through methods so the caching rules stay in one place.
// Safe for concurrent use: live pushes arrive from the subscription
// goroutine while the UI thread reads.
type State struct {
	mu sync.Mutex

	messages []models.Message
	loading  bool
	loadMore bool
	hasMore  bool
	err      error

	searchResults []models.Message
	searchActive  bool
	searchLoading bool
	searchErr     error

	uploading   bool
	uploadErr   error
	typingUsers []string

	// Optimistic reaction overlay keyed by message ID. Confirmed server
	// state stays in messages; the overlay is discarded on the next full
	// snapshot or on an explicit failure.
	pendingReactions map[string]map[string]*models.Reaction
}

func NewState() *State {
	return &State{
		hasMore:          true,
		pendingReactions: make(map[string]map[string]*models.Reaction),
	}
}

// SetMessages replaces the window with a full subscription snapshot. This is
// the only transition allowed to shrink the visible set. It clears the error
// slot and reconciles away any pending reaction overlays.
func (s *State) SetMessages(msgs []models.Message, hasMore bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]models.Message, len(msgs))
	copy(s.messages, msgs)
	sortMessages(s.messages)
	s.hasMore = hasMore
	s.loading = false
	s.err = nil
	s.pendingReactions = make(map[string]map[string]*models.Reaction)
}

// AddOlderMessages merges a pagination page into the window.
func (s *State) AddOlderMessages(msgs []models.Message, hasMore bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = MergeMessages(s.messages, msgs)
	s.hasMore = hasMore
	s.loadMore = false
}

// AddMessage merges a single message from a send or a live push.
func (s *State) AddMessage(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = MergeMessages(s.messages, []models.Message{msg})
}

// PatchMessage applies a targeted single-message update, such as a read
// state change or an edit. Unknown IDs are ignored.
func (s *State) PatchMessage(updated models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == updated.ID {
			if updated.IsBroadcast() {
				s.messages[i] = mergeBroadcast(s.messages[i], updated)
			} else {
				s.messages[i] = updated
			}
			return
		}
	}
}

// StageReactions records an optimistic reaction overlay for one message,
// applied ahead of server confirmation.
func (s *State) StageReactions(messageID string, reactions map[string]*models.Reaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingReactions[messageID] = reactions
}

// DiscardReactions drops the pending overlay for one message, reverting the
// visible state to the last confirmed snapshot.
func (s *State) DiscardReactions(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingReactions, messageID)
}

// ConfirmReactions replaces the confirmed reactions for one message and
// clears its overlay.
func (s *State) ConfirmReactions(messageID string, reactions map[string]*models.Reaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pendingReactions, messageID)
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i].Reactions = reactions
			return
		}
	}
}

// Messages returns a copy of the visible window with pending reaction
// overlays applied on top of confirmed state.
func (s *State) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	for i := range out {
		if overlay, ok := s.pendingReactions[out[i].ID]; ok {
			out[i].Reactions = overlay
		}
	}
	return out
}

// HasMore reports whether older history may exist beyond the window.
func (s *State) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

func (s *State) StartLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.err = nil
}

func (s *State) StartLoadingMore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadMore = true
}

// Fail records an operation error for the UI to surface with a retry
// affordance. Loading flags are cleared.
func (s *State) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.loading = false
	s.loadMore = false
}

func (s *State) Loading() (loading, loadingMore bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading, s.loadMore
}

func (s *State) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// StartSearch activates search mode and clears prior results.
func (s *State) StartSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchActive = true
	s.searchLoading = true
	s.searchErr = nil
	s.searchResults = nil
}

func (s *State) SearchSucceeded(results []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchLoading = false
	s.searchResults = results
}

func (s *State) SearchFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchLoading = false
	s.searchErr = err
}

func (s *State) ClearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchActive = false
	s.searchLoading = false
	s.searchErr = nil
	s.searchResults = nil
}

func (s *State) Search() (active, loading bool, results []models.Message, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchActive, s.searchLoading, s.searchResults, s.searchErr
}

func (s *State) StartUpload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploading = true
	s.uploadErr = nil
}

func (s *State) UploadFinished(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploading = false
	s.uploadErr = err
}

func (s *State) Upload() (uploading bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploading, s.uploadErr
}

// SetTypingUsers replaces the list of users currently typing in this view.
func (s *State) SetTypingUsers(users []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typingUsers = users
}

func (s *State) TypingUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.typingUsers))
	copy(out, s.typingUsers)
	return out
}
