package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/hallpass-app/hallpass/core/messaging"
)

type messagingRepository struct {
	db *DB
}

func NewMessagingRepository(db *DB) messaging.Repository {
	return &messagingRepository{db: db}
}

func (repo *messagingRepository) CreateConversation(_ context.Context, conv messaging.Conversation) (messaging.Conversation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := conv.Key()
	for _, r := range repo.db.conversations {
		if r.val.Key() == key && r.val.StudentID == conv.StudentID {
			return messaging.Conversation{}, messaging.ErrConversationExists
		}
	}

	conv.ID = newID()
	repo.db.conversations[conv.ID] = &rec[messaging.Conversation]{seq: repo.db.nextSeq(), val: conv}
	return conv, nil
}

func (repo *messagingRepository) GetConversationByID(_ context.Context, id string) (messaging.Conversation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.conversations[id]; ok {
		return r.val, nil
	}
	return messaging.Conversation{}, messaging.ErrNotFound
}

func (repo *messagingRepository) GetConversationByKey(_ context.Context, key, studentID string) (messaging.Conversation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, r := range repo.db.conversations {
		if r.val.Key() == key && r.val.StudentID == studentID {
			return r.val, nil
		}
	}
	return messaging.Conversation{}, messaging.ErrNotFound
}

func (repo *messagingRepository) QueryConversationsByUser(_ context.Context, userID string) ([]messaging.Conversation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	convs := ordered(repo.db.conversations, func(c messaging.Conversation) bool { return c.HasParticipant(userID) })
	sort.SliceStable(convs, func(i, j int) bool {
		return lastActivity(convs[i]).After(lastActivity(convs[j]))
	})
	return convs, nil
}

func (repo *messagingRepository) SaveConversationSnapshot(_ context.Context, conv messaging.Conversation) (messaging.Conversation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	r, ok := repo.db.conversations[conv.ID]
	if !ok {
		return messaging.Conversation{}, messaging.ErrNotFound
	}
	r.val.LastMessage = conv.LastMessage
	r.val.LastSenderID = conv.LastSenderID
	r.val.LastMessageAt = conv.LastMessageAt
	r.val.UpdatedAt = conv.UpdatedAt
	r.val.UnreadCounts = make(map[string]int, len(conv.UnreadCounts))
	for id, n := range conv.UnreadCounts {
		r.val.UnreadCounts[id] = n
	}
	return r.val, nil
}

func (repo *messagingRepository) CreateMessage(_ context.Context, msg messaging.Message) (messaging.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	msg.ID = newID()
	repo.db.messages[msg.ID] = &rec[messaging.Message]{seq: repo.db.nextSeq(), val: msg}
	return msg, nil
}

func (repo *messagingRepository) QueryMessagesByConversation(_ context.Context, conversationID string) ([]messaging.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return ordered(repo.db.messages, func(m messaging.Message) bool { return m.ConversationID == conversationID }), nil
}

func (repo *messagingRepository) MarkMessagesRead(_ context.Context, conversationID, userID string, t time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, r := range repo.db.messages {
		if r.val.ConversationID == conversationID && r.val.SenderID != userID && !r.val.Read {
			r.val.Read = true
			r.val.ReadAt = t
		}
	}
	return nil
}

func lastActivity(conv messaging.Conversation) time.Time {
	if conv.LastMessageAt.IsZero() {
		return conv.CreatedAt
	}
	return conv.LastMessageAt
}
