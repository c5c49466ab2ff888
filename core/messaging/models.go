package messaging

import (
	"sort"
	"strings"
	"time"
)

// Conversation is a two-party message thread, optionally scoped to one
// student. It carries a denormalized snapshot of its last message and a
// per-participant unread counter so list views need no message scan.
type Conversation struct {
	ID               string            `json:"id"`
	ParticipantIDs   []string          `json:"participant_ids"` // exactly two
	ParticipantNames map[string]string `json:"participant_names"`
	ClassID          string            `json:"class_id,omitempty"`
	StudentID        string            `json:"student_id,omitempty"`
	StudentName      string            `json:"student_name,omitempty"`
	LastMessage      string            `json:"last_message,omitempty"`
	LastSenderID     string            `json:"last_sender_id,omitempty"`
	LastMessageAt    time.Time         `json:"last_message_at"`
	UnreadCounts     map[string]int    `json:"unread_counts"`
	CreatedAt        time.Time         `json:"created_at"` // UTC
	UpdatedAt        time.Time         `json:"updated_at"` // UTC
}

// ParticipantKey canonicalizes an unordered participant pair. The same two
// IDs always produce the same key, which backs the storage uniqueness
// constraint on (participant_key, student_id).
func ParticipantKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

func (c *Conversation) Key() string {
	if len(c.ParticipantIDs) != 2 {
		return ""
	}
	return ParticipantKey(c.ParticipantIDs[0], c.ParticipantIDs[1])
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id
		}
	}
	return ""
}

// UnreadFor returns userID's unread counter, 0 when absent.
func (c *Conversation) UnreadFor(userID string) int {
	if c.UnreadCounts == nil {
		return 0
	}
	return c.UnreadCounts[userID]
}

// Message belongs to exactly one conversation. Immutable once created,
// except for the read flag.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	ReadAt         time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

// NewConversation carries a get-or-create request.
type NewConversation struct {
	ParticipantIDs   []string          `json:"participant_ids" validate:"required,len=2"`
	ParticipantNames map[string]string `json:"participant_names"`
	ClassID          string            `json:"class_id"`
	StudentID        string            `json:"student_id"`
	StudentName      string            `json:"student_name"`
}

// DayGroup is a display bucket of messages sharing a calendar day.
type DayGroup struct {
	Day      string    `json:"day"` // YYYY-MM-DD, UTC
	Messages []Message `json:"messages"`
}

// GroupByDay partitions messages by calendar day, preserving order.
// Input is expected in creation-time order; every message lands in
// exactly one group.
func GroupByDay(msgs []Message) []DayGroup {
	groups := make([]DayGroup, 0)
	idx := make(map[string]int)
	for _, msg := range msgs {
		day := msg.CreatedAt.UTC().Format("2006-01-02")
		i, ok := idx[day]
		if !ok {
			groups = append(groups, DayGroup{Day: day})
			i = len(groups) - 1
			idx[day] = i
		}
		groups[i].Messages = append(groups[i].Messages, msg)
	}
	return groups
}
