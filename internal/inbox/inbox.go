// Package inbox holds the in-memory conversation view for one client
// session. It is the single state both user-initiated actions and inbound
// stream events converge on; each conversation has its own critical section
// so the two producers never interleave partial updates.
package inbox

import (
	"sort"
	"sync"
	"time"

	"dwello.app/dealroom/internal/model"
)

// Summary is the session-local projection of one conversation.
type Summary struct {
	ID            int64
	PropertyID    int64
	RequesterID   int64
	OwnerID       int64
	LastMessageAt time.Time
	LastSeq       int64
	Unread        map[int64]int64
	Cursor        map[int64]int64
}

func (s *Summary) participants() [2]int64 {
	return [2]int64{s.RequesterID, s.OwnerID}
}

type conversationState struct {
	mu       sync.Mutex
	summary  Summary
	messages map[int64]model.Message // keyed by seq
}

// Inbox is created per session and torn down on logout. It is safe for
// concurrent use; state for different conversations is never serialized
// against each other.
type Inbox struct {
	mu        sync.RWMutex
	convs     map[int64]*conversationState
	proposals map[int64]*model.Proposal
	closed    bool
}

func New() *Inbox {
	return &Inbox{
		convs:     make(map[int64]*conversationState),
		proposals: make(map[int64]*model.Proposal),
	}
}

// Seed installs the persisted summary for a conversation, typically from
// the initial conversation list fetch. Existing local state wins on
// last_message_at and cursors so a racing live event is not regressed.
func (i *Inbox) Seed(conv model.Conversation) {
	state := i.state(conv.ID)
	state.mu.Lock()
	defer state.mu.Unlock()

	s := &state.summary
	s.PropertyID = conv.PropertyID
	s.RequesterID = conv.RequesterID
	s.OwnerID = conv.OwnerID
	if conv.LastMessageAt.After(s.LastMessageAt) {
		s.LastMessageAt = conv.LastMessageAt
	}
	if conv.LastSeq > s.LastSeq {
		s.LastSeq = conv.LastSeq
	}
	seedCursor(s, conv.RequesterID, conv.RequesterCursor, conv.RequesterUnread)
	seedCursor(s, conv.OwnerID, conv.OwnerCursor, conv.OwnerUnread)
}

func seedCursor(s *Summary, participantID, cursor, unread int64) {
	if cursor > s.Cursor[participantID] {
		s.Cursor[participantID] = cursor
	}
	if _, seen := s.Unread[participantID]; !seen {
		s.Unread[participantID] = unread
	}
}

// ApplyMessage folds one message into the view. Applying the same message
// twice is a no-op, so at-least-once delivery upstream is safe.
func (i *Inbox) ApplyMessage(msg model.Message) {
	state := i.state(msg.ConversationID)
	state.mu.Lock()
	defer state.mu.Unlock()

	if _, applied := state.messages[msg.Seq]; applied {
		return
	}
	state.messages[msg.Seq] = msg

	s := &state.summary
	if msg.CreatedAt.After(s.LastMessageAt) {
		s.LastMessageAt = msg.CreatedAt
	}
	if msg.Seq > s.LastSeq {
		s.LastSeq = msg.Seq
	}
	for _, p := range s.participants() {
		if p == 0 || p == msg.SenderID {
			continue
		}
		if s.Cursor[p] < msg.Seq {
			s.Unread[p]++
		}
	}

	i.applyProposalEffect(msg)
}

// applyProposalEffect keeps the cached proposal consistent with the log even
// when the local actor did not originate the transition.
func (i *Inbox) applyProposalEffect(msg model.Message) {
	if !msg.ResolvesProposal() || msg.ProposalID == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	if p, ok := i.proposals[*msg.ProposalID]; ok && p.IsPending() {
		p.Status = msg.ResolvedStatus()
		sender := msg.SenderID
		p.RespondedBy = &sender
		at := msg.CreatedAt
		p.RespondedAt = &at
	}
	if msg.Kind == model.MessageKindProposalCountered && msg.NewProposalID != nil {
		if _, ok := i.proposals[*msg.NewProposalID]; !ok {
			parent := *msg.ProposalID
			i.proposals[*msg.NewProposalID] = &model.Proposal{
				ID:               *msg.NewProposalID,
				ConversationID:   msg.ConversationID,
				CreatedBy:        msg.SenderID,
				Status:           model.ProposalStatusPending,
				ParentProposalID: &parent,
				CreatedAt:        msg.CreatedAt,
			}
		}
	}
}

// UpsertProposal caches a proposal snapshot fetched or returned by the
// facade. A resolved snapshot always wins over a cached pending one.
func (i *Inbox) UpsertProposal(p *model.Proposal) {
	i.mu.Lock()
	defer i.mu.Unlock()

	existing, ok := i.proposals[p.ID]
	if ok && existing.IsResolved() && p.IsPending() {
		return
	}
	clone := *p
	i.proposals[p.ID] = &clone
}

// Proposal returns the cached snapshot, or nil when unknown.
func (i *Inbox) Proposal(id int64) *model.Proposal {
	i.mu.RLock()
	defer i.mu.RUnlock()

	p, ok := i.proposals[id]
	if !ok {
		return nil
	}
	clone := *p
	return &clone
}

// MarkRead advances the participant's read cursor. A seq at or behind the
// current cursor is ignored; otherwise unread becomes the count of later
// messages not authored by the participant.
func (i *Inbox) MarkRead(conversationID, participantID, upToSeq int64) bool {
	state := i.state(conversationID)
	state.mu.Lock()
	defer state.mu.Unlock()

	s := &state.summary
	if upToSeq <= s.Cursor[participantID] {
		return false
	}
	s.Cursor[participantID] = upToSeq

	var unread int64
	for seq, msg := range state.messages {
		if seq > upToSeq && msg.SenderID != participantID {
			unread++
		}
	}
	s.Unread[participantID] = unread
	return true
}

// ListForUser returns the user's conversations ordered by last activity,
// newest first, with conversation ID as a stable tie-break.
func (i *Inbox) ListForUser(userID int64) []Summary {
	i.mu.RLock()
	states := make([]*conversationState, 0, len(i.convs))
	for _, st := range i.convs {
		states = append(states, st)
	}
	i.mu.RUnlock()

	var result []Summary
	for _, st := range states {
		st.mu.Lock()
		if st.summary.RequesterID == userID || st.summary.OwnerID == userID {
			result = append(result, snapshot(&st.summary))
		}
		st.mu.Unlock()
	}

	sort.Slice(result, func(a, b int) bool {
		if !result[a].LastMessageAt.Equal(result[b].LastMessageAt) {
			return result[a].LastMessageAt.After(result[b].LastMessageAt)
		}
		return result[a].ID < result[b].ID
	})
	return result
}

// Conversation returns a snapshot of the local summary, or nil when the
// conversation is unknown to this session.
func (i *Inbox) Conversation(conversationID int64) *Summary {
	i.mu.RLock()
	st, ok := i.convs[conversationID]
	i.mu.RUnlock()
	if !ok {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	s := snapshot(&st.summary)
	return &s
}

// Messages returns the applied messages of a conversation in seq order.
func (i *Inbox) Messages(conversationID int64) []model.Message {
	i.mu.RLock()
	st, ok := i.convs[conversationID]
	i.mu.RUnlock()
	if !ok {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	msgs := make([]model.Message, 0, len(st.messages))
	for _, m := range st.messages {
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(a, b int) bool { return msgs[a].Seq < msgs[b].Seq })
	return msgs
}

// LastAppliedSeq reports where a stream subscription should resume.
func (i *Inbox) LastAppliedSeq(conversationID int64) int64 {
	i.mu.RLock()
	st, ok := i.convs[conversationID]
	i.mu.RUnlock()
	if !ok {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.summary.LastSeq
}

// Close tears the session state down. Subsequent applies are dropped.
func (i *Inbox) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	i.convs = make(map[int64]*conversationState)
	i.proposals = make(map[int64]*model.Proposal)
}

func (i *Inbox) state(conversationID int64) *conversationState {
	i.mu.RLock()
	st, ok := i.convs[conversationID]
	i.mu.RUnlock()
	if ok {
		return st
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if st, ok = i.convs[conversationID]; ok {
		return st
	}
	st = &conversationState{
		summary: Summary{
			ID:     conversationID,
			Unread: make(map[int64]int64),
			Cursor: make(map[int64]int64),
		},
		messages: make(map[int64]model.Message),
	}
	if !i.closed {
		i.convs[conversationID] = st
	}
	return st
}

func snapshot(s *Summary) Summary {
	out := *s
	out.Unread = make(map[int64]int64, len(s.Unread))
	for k, v := range s.Unread {
		out.Unread[k] = v
	}
	out.Cursor = make(map[int64]int64, len(s.Cursor))
	for k, v := range s.Cursor {
		out.Cursor[k] = v
	}
	return out
}
