package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hallpass-app/hallpass/core/classroom"
)

type classroomRow struct {
	ID        string         `db:"id"`
	SchoolID  string         `db:"school_id"`
	TeacherID string         `db:"teacher_id"`
	Name      string         `db:"name"`
	Code      string         `db:"code"`
	ParentIDs pq.StringArray `db:"parent_ids"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r classroomRow) unpack() classroom.Classroom {
	return classroom.Classroom{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		TeacherID: r.TeacherID,
		Name:      r.Name,
		Code:      r.Code,
		ParentIDs: r.ParentIDs,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type studentRow struct {
	ID        string         `db:"id"`
	ClassID   string         `db:"class_id"`
	Name      string         `db:"name"`
	ParentIDs pq.StringArray `db:"parent_ids"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r studentRow) unpack() classroom.Student {
	return classroom.Student{
		ID:        r.ID,
		ClassID:   r.ClassID,
		Name:      r.Name,
		ParentIDs: r.ParentIDs,
		CreatedAt: r.CreatedAt,
	}
}

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *sqlx.DB) *classroomRepository {
	return &classroomRepository{db: db}
}

func (repo classroomRepository) CreateClassroom(ctx context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	cls.ID = uuid.New().String()

	q := `
		INSERT INTO classrooms (id, school_id, teacher_id, name, code, parent_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(ctx, q,
		cls.ID, cls.SchoolID, cls.TeacherID, cls.Name, cls.Code,
		pq.StringArray(cls.ParentIDs), cls.CreatedAt, cls.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return classroom.Classroom{}, classroom.ErrCodeExists
		}
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return cls, nil
}

func (repo classroomRepository) GetClassroomByID(ctx context.Context, id string) (classroom.Classroom, error) {
	var row classroomRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM classrooms WHERE id = $1`, id); err != nil {
		return classroom.Classroom{}, repo.trapNoRowsErr(err, classroom.ErrNotFound, "finding classroom by ID")
	}
	return row.unpack(), nil
}

func (repo classroomRepository) GetClassroomByCode(ctx context.Context, code string) (classroom.Classroom, error) {
	var row classroomRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM classrooms WHERE code = $1`, code); err != nil {
		return classroom.Classroom{}, repo.trapNoRowsErr(err, classroom.ErrNotFound, "finding classroom by code")
	}
	return row.unpack(), nil
}

func (repo classroomRepository) QueryClassroomsByTeacher(ctx context.Context, teacherID string) ([]classroom.Classroom, error) {
	var rows []classroomRow
	q := `SELECT * FROM classrooms WHERE teacher_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying classrooms by teacher")
	}
	return unpackClassrooms(rows), nil
}

func (repo classroomRepository) QueryClassroomsByParent(ctx context.Context, parentID string) ([]classroom.Classroom, error) {
	var rows []classroomRow
	q := `SELECT * FROM classrooms WHERE $1 = ANY(parent_ids) ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, parentID); err != nil {
		return nil, errors.Wrap(err, "querying classrooms by parent")
	}
	return unpackClassrooms(rows), nil
}

func (repo classroomRepository) AddClassroomParent(ctx context.Context, classID, parentID string) (classroom.Classroom, error) {
	q := `
		UPDATE classrooms
		SET parent_ids = array_append(parent_ids, $2), updated_at = $3
		WHERE id = $1 AND NOT ($2 = ANY(parent_ids))`
	if _, err := repo.db.ExecContext(ctx, q, classID, parentID, time.Now().UTC()); err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "adding classroom parent")
	}
	return repo.GetClassroomByID(ctx, classID)
}

func (repo classroomRepository) CreateStudent(ctx context.Context, st classroom.Student) (classroom.Student, error) {
	st.ID = uuid.New().String()

	q := `
		INSERT INTO students (id, class_id, name, parent_ids, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := repo.db.ExecContext(ctx, q, st.ID, st.ClassID, st.Name, pq.StringArray(st.ParentIDs), st.CreatedAt)
	if err != nil {
		return classroom.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo classroomRepository) GetStudentByID(ctx context.Context, id string) (classroom.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM students WHERE id = $1`, id); err != nil {
		return classroom.Student{}, repo.trapNoRowsErr(err, classroom.ErrStudentNotFound, "finding student by ID")
	}
	return row.unpack(), nil
}

func (repo classroomRepository) QueryStudentsByClass(ctx context.Context, classID string) ([]classroom.Student, error) {
	var rows []studentRow
	q := `SELECT * FROM students WHERE class_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying students by class")
	}
	students := make([]classroom.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.unpack())
	}
	return students, nil
}

func (repo classroomRepository) LinkStudentParent(ctx context.Context, studentID, parentID string) (classroom.Student, error) {
	q := `
		UPDATE students
		SET parent_ids = array_append(parent_ids, $2)
		WHERE id = $1 AND NOT ($2 = ANY(parent_ids))`
	if _, err := repo.db.ExecContext(ctx, q, studentID, parentID); err != nil {
		return classroom.Student{}, errors.Wrap(err, "linking student parent")
	}
	return repo.GetStudentByID(ctx, studentID)
}

func (repo classroomRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func unpackClassrooms(rows []classroomRow) []classroom.Classroom {
	classrooms := make([]classroom.Classroom, 0, len(rows))
	for _, r := range rows {
		classrooms = append(classrooms, r.unpack())
	}
	return classrooms
}
