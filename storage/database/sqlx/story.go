package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hallpass-app/hallpass/core/story"
)

type storyRepository struct {
	db *sqlx.DB
}

var _ story.Repository = (*storyRepository)(nil) // interface compliance check

func NewStoryRepository(db *sqlx.DB) *storyRepository {
	return &storyRepository{db: db}
}

func (repo storyRepository) CreateStory(ctx context.Context, st story.Story) (story.Story, error) {
	st.ID = uuid.New().String()

	q := `
		INSERT INTO stories (id, class_id, author_id, author_name, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q, st.ID, st.ClassID, st.AuthorID, st.AuthorName, st.Content, st.CreatedAt)
	if err != nil {
		return story.Story{}, errors.Wrap(err, "inserting story")
	}
	return st, nil
}

func (repo storyRepository) QueryStoriesByClass(ctx context.Context, classID string) ([]story.Story, error) {
	stories := make([]story.Story, 0)
	q := `
		SELECT id, class_id, author_id, author_name, content, created_at
		FROM stories WHERE class_id = $1 ORDER BY created_at DESC`
	rows, err := repo.db.QueryxContext(ctx, q, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying stories by class")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var st story.Story
		if err = rows.Scan(&st.ID, &st.ClassID, &st.AuthorID, &st.AuthorName, &st.Content, &st.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning story")
		}
		stories = append(stories, st)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "querying stories by class")
	}
	return stories, nil
}

func (repo storyRepository) CreatePointRecord(ctx context.Context, rec story.PointRecord) (story.PointRecord, error) {
	rec.ID = uuid.New().String()

	q := `
		INSERT INTO point_records (id, class_id, student_id, teacher_id, points, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q,
		rec.ID, rec.ClassID, rec.StudentID, rec.TeacherID, rec.Points, rec.Reason, rec.CreatedAt,
	)
	if err != nil {
		return story.PointRecord{}, errors.Wrap(err, "inserting point record")
	}
	return rec, nil
}

func (repo storyRepository) QueryPointRecordsByStudent(ctx context.Context, studentID string) ([]story.PointRecord, error) {
	records := make([]story.PointRecord, 0)
	q := `
		SELECT id, class_id, student_id, teacher_id, points, reason, created_at
		FROM point_records WHERE student_id = $1 ORDER BY created_at`
	rows, err := repo.db.QueryxContext(ctx, q, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying point records by student")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var rec story.PointRecord
		if err = rows.Scan(&rec.ID, &rec.ClassID, &rec.StudentID, &rec.TeacherID, &rec.Points, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning point record")
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "querying point records by student")
	}
	return records, nil
}

func (repo storyRepository) StudentPointsTotal(ctx context.Context, studentID string) (int, error) {
	var total int
	q := `SELECT COALESCE(SUM(points), 0) FROM point_records WHERE student_id = $1`
	if err := repo.db.GetContext(ctx, &total, q, studentID); err != nil {
		return 0, errors.Wrap(err, "summing student points")
	}
	return total, nil
}
