package messaging

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/hallpass-app/hallpass/core"
	"github.com/hallpass-app/hallpass/core/user"
	"github.com/hallpass-app/hallpass/realtime"
)

var (
	// errors
	ErrNotFound            = errors.New("conversation not found")
	ErrConversationExists  = errors.New("conversation already exists")
	ErrNotParticipant      = errors.New("not a participant of this conversation")
	errEmptyMessageContent = errors.New("message content cannot be empty")
)

type (
	Repository interface {
		// CreateConversation fails with ErrConversationExists when a
		// conversation with the same (participant key, student) already exists.
		CreateConversation(ctx context.Context, conv Conversation) (Conversation, error)
		GetConversationByID(ctx context.Context, id string) (Conversation, error)
		GetConversationByKey(ctx context.Context, key, studentID string) (Conversation, error)
		// QueryConversationsByUser returns conversations ordered by last
		// message time descending (creation time when no message yet).
		QueryConversationsByUser(ctx context.Context, userID string) ([]Conversation, error)
		// SaveConversationSnapshot persists the denormalized last-message
		// fields and unread counters.
		SaveConversationSnapshot(ctx context.Context, conv Conversation) (Conversation, error)
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		// QueryMessagesByConversation returns messages in creation-time order.
		QueryMessagesByConversation(ctx context.Context, conversationID string) ([]Message, error)
		// MarkMessagesRead flags all messages in the conversation not sent
		// by userID as read at t.
		MarkMessagesRead(ctx context.Context, conversationID, userID string, t time.Time) error
	}

	// UserGetter resolves user identities for notification emails.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo    Repository
		users   UserGetter
		mailSvc core.EmailService
		hub     *realtime.Hub
		conf    *core.Config
	}
)

func NewService(repo Repository, users UserGetter, mailSvc core.EmailService, hub *realtime.Hub, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		mailSvc: mailSvc,
		hub:     hub,
		conf:    conf,
	}
}

// Realtime topics.

func Topic(conversationID string) string        { return "conversation:" + conversationID + ":messages" }
func UserConversationsTopic(userID string) string { return "user:" + userID + ":conversations" }

// GetOrCreate returns the conversation for the given unordered participant
// pair and student context, creating it if it does not exist. Idempotent:
// the same pair and student always resolve to the same conversation.
func (svc *Service) GetOrCreate(ctx context.Context, nc NewConversation) (Conversation, error) {
	key := ParticipantKey(nc.ParticipantIDs[0], nc.ParticipantIDs[1])

	conv, err := svc.repo.GetConversationByKey(ctx, key, nc.StudentID)
	if err == nil {
		return conv, nil
	}
	if err != ErrNotFound {
		return Conversation{}, pkgerrors.Wrap(err, "finding conversation by key")
	}

	now := time.Now().UTC()
	counts := make(map[string]int, 2)
	for _, id := range nc.ParticipantIDs {
		counts[id] = 0
	}
	conv, err = svc.repo.CreateConversation(ctx, Conversation{
		ParticipantIDs:   nc.ParticipantIDs,
		ParticipantNames: nc.ParticipantNames,
		ClassID:          nc.ClassID,
		StudentID:        nc.StudentID,
		StudentName:      nc.StudentName,
		UnreadCounts:     counts,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err == ErrConversationExists {
		// lost a concurrent create; the unique index guarantees the
		// existing row is the one we wanted
		return svc.repo.GetConversationByKey(ctx, key, nc.StudentID)
	}
	if err != nil {
		return Conversation{}, pkgerrors.Wrap(err, "creating conversation")
	}
	return conv, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Conversation, error) {
	return svc.repo.GetConversationByID(ctx, id)
}

// ListForUser returns a user's conversations, most recently active first.
func (svc *Service) ListForUser(ctx context.Context, userID string) ([]Conversation, error) {
	return svc.repo.QueryConversationsByUser(ctx, userID)
}

// Messages returns a conversation's messages in creation-time order.
func (svc *Service) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	return svc.repo.QueryMessagesByConversation(ctx, conversationID)
}

// Send appends a message to the conversation, updates its last-message
// snapshot and bumps the unread counter of every participant but the sender.
func (svc *Service) Send(ctx context.Context, conversationID, senderID, senderName, content string) (Message, error) {
	content = core.CleanString(content)
	if content == "" {
		return Message{}, core.NewValidationError(errEmptyMessageContent,
			core.FieldError{Field: "content", Error: errEmptyMessageContent.Error()})
	}

	conv, err := svc.repo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return Message{}, err
	}
	if !conv.HasParticipant(senderID) {
		return Message{}, ErrNotParticipant
	}

	msg, err := svc.repo.CreateMessage(ctx, Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     senderName,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return Message{}, pkgerrors.Wrap(err, "creating message")
	}

	if conv.UnreadCounts == nil {
		conv.UnreadCounts = make(map[string]int, len(conv.ParticipantIDs))
	}
	for _, id := range conv.ParticipantIDs {
		if id != senderID {
			conv.UnreadCounts[id]++
		}
	}
	conv.LastMessage = msg.Content
	conv.LastSenderID = msg.SenderID
	conv.LastMessageAt = msg.CreatedAt
	conv.UpdatedAt = msg.CreatedAt

	conv, err = svc.repo.SaveConversationSnapshot(ctx, conv)
	if err != nil {
		return Message{}, pkgerrors.Wrap(err, "updating conversation snapshot")
	}

	svc.publishMessages(ctx, conversationID)
	svc.publishConversationLists(ctx, conv)
	svc.notifyRecipient(ctx, conv, msg)
	return msg, nil
}

// MarkRead zeroes the user's unread counter and flags unread messages read.
// Safe to call redundantly; the counter never goes negative.
func (svc *Service) MarkRead(ctx context.Context, conversationID, userID string) error {
	conv, err := svc.repo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return ErrNotParticipant
	}

	now := time.Now().UTC()
	if err = svc.repo.MarkMessagesRead(ctx, conversationID, userID, now); err != nil {
		return pkgerrors.Wrap(err, "marking messages read")
	}

	if conv.UnreadFor(userID) != 0 {
		conv.UnreadCounts[userID] = 0
		conv.UpdatedAt = now
		if conv, err = svc.repo.SaveConversationSnapshot(ctx, conv); err != nil {
			return pkgerrors.Wrap(err, "updating conversation snapshot")
		}
	}

	svc.publishMessages(ctx, conversationID)
	svc.publishConversationLists(ctx, conv)
	return nil
}

// TotalUnread sums the user's unread counters across all conversations.
func (svc *Service) TotalUnread(ctx context.Context, userID string) (int, error) {
	convs, err := svc.repo.QueryConversationsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total int
	for i := range convs {
		total += convs[i].UnreadFor(userID)
	}
	return total, nil
}

// SubscribeMessages streams full message-list snapshots for a conversation.
// The returned subscription must be closed on teardown.
func (svc *Service) SubscribeMessages(conversationID string) *realtime.Subscription {
	return svc.hub.Subscribe(Topic(conversationID))
}

// SubscribeConversations streams full conversation-list snapshots for a user.
// The returned subscription must be closed on teardown.
func (svc *Service) SubscribeConversations(userID string) *realtime.Subscription {
	return svc.hub.Subscribe(UserConversationsTopic(userID))
}

func (svc *Service) publishMessages(ctx context.Context, conversationID string) {
	msgs, err := svc.repo.QueryMessagesByConversation(ctx, conversationID)
	if err != nil {
		return // best-effort: subscribers keep their last snapshot
	}
	svc.hub.Publish(Topic(conversationID), msgs)
}

func (svc *Service) publishConversationLists(ctx context.Context, conv Conversation) {
	for _, id := range conv.ParticipantIDs {
		convs, err := svc.repo.QueryConversationsByUser(ctx, id)
		if err != nil {
			continue
		}
		svc.hub.Publish(UserConversationsTopic(id), convs)
	}
}

func (svc *Service) notifyRecipient(ctx context.Context, conv Conversation, msg Message) {
	recipient, err := svc.users.GetByID(ctx, conv.OtherParticipant(msg.SenderID))
	if err != nil {
		return // notification is best-effort; the message already landed
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: recipient.Name, Address: recipient.Email}},
		Subject:      fmt.Sprintf("New message from %s", msg.SenderName),
		TemplateName: "new-message",
		TemplateData: struct {
			RecipientName string
			SenderName    string
			Preview       string
		}{recipient.Name, msg.SenderName, msg.Content},
	})
}
