package story

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hallpass-app/hallpass/core"
)

// Story is a classroom-scoped post by a classroom member.
type Story struct {
	ID         string    `json:"id"`
	ClassID    string    `json:"class_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// PointRecord is one behavior point award (positive) or deduction (negative).
type PointRecord struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	StudentID string    `json:"student_id"`
	TeacherID string    `json:"teacher_id"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewStory contains information needed to post a Story.
type NewStory struct {
	Content string `json:"content" validate:"required"`
}

func (ns *NewStory) Validate(validate *validator.Validate) error {
	ns.Content = core.CleanString(ns.Content)
	return validate.Struct(ns)
}

// NewPointRecord contains information needed to award or deduct points.
type NewPointRecord struct {
	StudentID string `json:"student_id" validate:"required"`
	Points    int    `json:"points" validate:"required"`
	Reason    string `json:"reason"`
}

func (np *NewPointRecord) Validate(validate *validator.Validate) error {
	np.Reason = core.CleanString(np.Reason)
	return validate.Struct(np)
}
