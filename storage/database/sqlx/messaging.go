package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hallpass-app/hallpass/core/messaging"
)

type conversationRow struct {
	ID               string          `db:"id"`
	ParticipantKey   string          `db:"participant_key"`
	ParticipantIDs   pq.StringArray  `db:"participant_ids"`
	ParticipantNames json.RawMessage `db:"participant_names"`
	ClassID          string          `db:"class_id"`
	StudentID        string          `db:"student_id"`
	StudentName      string          `db:"student_name"`
	LastMessage      string          `db:"last_message"`
	LastSenderID     string          `db:"last_sender_id"`
	LastMessageAt    sql.NullTime    `db:"last_message_at"`
	UnreadCounts     json.RawMessage `db:"unread_counts"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (r conversationRow) unpack() (messaging.Conversation, error) {
	conv := messaging.Conversation{
		ID:             r.ID,
		ParticipantIDs: r.ParticipantIDs,
		ClassID:        r.ClassID,
		StudentID:      r.StudentID,
		StudentName:    r.StudentName,
		LastMessage:    r.LastMessage,
		LastSenderID:   r.LastSenderID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.LastMessageAt.Valid {
		conv.LastMessageAt = r.LastMessageAt.Time
	}
	if err := json.Unmarshal(r.ParticipantNames, &conv.ParticipantNames); err != nil {
		return messaging.Conversation{}, errors.Wrap(err, "decoding participant names")
	}
	if err := json.Unmarshal(r.UnreadCounts, &conv.UnreadCounts); err != nil {
		return messaging.Conversation{}, errors.Wrap(err, "decoding unread counts")
	}
	return conv, nil
}

type messageRow struct {
	ID             string       `db:"id"`
	ConversationID string       `db:"conversation_id"`
	SenderID       string       `db:"sender_id"`
	SenderName     string       `db:"sender_name"`
	Content        string       `db:"content"`
	Read           bool         `db:"read"`
	ReadAt         sql.NullTime `db:"read_at"`
	CreatedAt      time.Time    `db:"created_at"`
}

func (r messageRow) unpack() messaging.Message {
	msg := messaging.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		SenderName:     r.SenderName,
		Content:        r.Content,
		Read:           r.Read,
		CreatedAt:      r.CreatedAt,
	}
	if r.ReadAt.Valid {
		msg.ReadAt = r.ReadAt.Time
	}
	return msg
}

type messagingRepository struct {
	db *sqlx.DB
}

var _ messaging.Repository = (*messagingRepository)(nil) // interface compliance check

func NewMessagingRepository(db *sqlx.DB) *messagingRepository {
	return &messagingRepository{db: db}
}

func (repo messagingRepository) CreateConversation(ctx context.Context, conv messaging.Conversation) (messaging.Conversation, error) {
	conv.ID = uuid.New().String()

	names, err := json.Marshal(conv.ParticipantNames)
	if err != nil {
		return messaging.Conversation{}, errors.Wrap(err, "encoding participant names")
	}
	counts, err := json.Marshal(conv.UnreadCounts)
	if err != nil {
		return messaging.Conversation{}, errors.Wrap(err, "encoding unread counts")
	}

	q := `
		INSERT INTO conversations (id, participant_key, participant_ids, participant_names,
		                           class_id, student_id, student_name, unread_counts,
		                           created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = repo.db.ExecContext(ctx, q,
		conv.ID, conv.Key(), pq.StringArray(conv.ParticipantIDs), names,
		conv.ClassID, conv.StudentID, conv.StudentName, counts,
		conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return messaging.Conversation{}, messaging.ErrConversationExists
		}
		return messaging.Conversation{}, errors.Wrap(err, "inserting conversation")
	}
	return conv, nil
}

func (repo messagingRepository) GetConversationByID(ctx context.Context, id string) (messaging.Conversation, error) {
	var row conversationRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM conversations WHERE id = $1`, id); err != nil {
		return messaging.Conversation{}, repo.trapNoRowsErr(err, "finding conversation by ID")
	}
	return row.unpack()
}

func (repo messagingRepository) GetConversationByKey(ctx context.Context, key, studentID string) (messaging.Conversation, error) {
	var row conversationRow
	q := `SELECT * FROM conversations WHERE participant_key = $1 AND student_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, key, studentID); err != nil {
		return messaging.Conversation{}, repo.trapNoRowsErr(err, "finding conversation by key")
	}
	return row.unpack()
}

func (repo messagingRepository) QueryConversationsByUser(ctx context.Context, userID string) ([]messaging.Conversation, error) {
	var rows []conversationRow
	q := `
		SELECT * FROM conversations
		WHERE $1 = ANY(participant_ids)
		ORDER BY COALESCE(last_message_at, created_at) DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying conversations by user")
	}

	convs := make([]messaging.Conversation, 0, len(rows))
	for _, r := range rows {
		conv, err := r.unpack()
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

func (repo messagingRepository) SaveConversationSnapshot(ctx context.Context, conv messaging.Conversation) (messaging.Conversation, error) {
	counts, err := json.Marshal(conv.UnreadCounts)
	if err != nil {
		return messaging.Conversation{}, errors.Wrap(err, "encoding unread counts")
	}

	var lastMessageAt *time.Time
	if !conv.LastMessageAt.IsZero() {
		lastMessageAt = &conv.LastMessageAt
	}
	q := `
		UPDATE conversations SET
			last_message = $2,
			last_sender_id = $3,
			last_message_at = $4,
			unread_counts = $5,
			updated_at = $6
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q,
		conv.ID, conv.LastMessage, conv.LastSenderID, lastMessageAt, counts, conv.UpdatedAt,
	)
	if err != nil {
		return messaging.Conversation{}, errors.Wrap(err, "updating conversation snapshot")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return messaging.Conversation{}, messaging.ErrNotFound
	}
	return conv, nil
}

func (repo messagingRepository) CreateMessage(ctx context.Context, msg messaging.Message) (messaging.Message, error) {
	msg.ID = uuid.New().String()

	q := `
		INSERT INTO messages (id, conversation_id, sender_id, sender_name, content, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q,
		msg.ID, msg.ConversationID, msg.SenderID, msg.SenderName, msg.Content, msg.Read, msg.CreatedAt,
	)
	if err != nil {
		return messaging.Message{}, errors.Wrap(err, "inserting message")
	}
	return msg, nil
}

func (repo messagingRepository) QueryMessagesByConversation(ctx context.Context, conversationID string) ([]messaging.Message, error) {
	var rows []messageRow
	q := `SELECT * FROM messages WHERE conversation_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, conversationID); err != nil {
		return nil, errors.Wrap(err, "querying messages by conversation")
	}
	msgs := make([]messaging.Message, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, r.unpack())
	}
	return msgs, nil
}

func (repo messagingRepository) MarkMessagesRead(ctx context.Context, conversationID, userID string, t time.Time) error {
	q := `
		UPDATE messages SET read = TRUE, read_at = $3
		WHERE conversation_id = $1 AND sender_id <> $2 AND NOT read`
	if _, err := repo.db.ExecContext(ctx, q, conversationID, userID, t); err != nil {
		return errors.Wrap(err, "marking messages read")
	}
	return nil
}

func (repo messagingRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return messaging.ErrNotFound
	}
	return errors.Wrap(err, msg)
}
