package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hallpass-app/hallpass/core/report"
)

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo reportRepository) CreateDistrict(ctx context.Context, d report.District) (report.District, error) {
	d.ID = uuid.New().String()

	q := `INSERT INTO districts (id, name, created_at) VALUES ($1, $2, $3)`
	if _, err := repo.db.ExecContext(ctx, q, d.ID, d.Name, d.CreatedAt); err != nil {
		return report.District{}, errors.Wrap(err, "inserting district")
	}
	return d, nil
}

func (repo reportRepository) GetDistrictByID(ctx context.Context, id string) (report.District, error) {
	var d report.District
	q := `SELECT id, name, created_at FROM districts WHERE id = $1`
	if err := repo.db.QueryRowxContext(ctx, q, id).Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
		return report.District{}, repo.trapNoRowsErr(err, report.ErrDistrictNotFound, "finding district by ID")
	}
	return d, nil
}

func (repo reportRepository) GetDistrictByName(ctx context.Context, name string) (report.District, error) {
	var d report.District
	q := `SELECT id, name, created_at FROM districts WHERE name = $1`
	if err := repo.db.QueryRowxContext(ctx, q, name).Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
		return report.District{}, repo.trapNoRowsErr(err, report.ErrDistrictNotFound, "finding district by name")
	}
	return d, nil
}

func (repo reportRepository) CreateSchool(ctx context.Context, s report.School) (report.School, error) {
	s.ID = uuid.New().String()

	q := `INSERT INTO schools (id, district_id, name, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, s.ID, s.DistrictID, s.Name, s.CreatedAt); err != nil {
		return report.School{}, errors.Wrap(err, "inserting school")
	}
	return s, nil
}

func (repo reportRepository) GetSchoolByID(ctx context.Context, id string) (report.School, error) {
	var s report.School
	q := `SELECT id, district_id, name, created_at FROM schools WHERE id = $1`
	if err := repo.db.QueryRowxContext(ctx, q, id).Scan(&s.ID, &s.DistrictID, &s.Name, &s.CreatedAt); err != nil {
		return report.School{}, repo.trapNoRowsErr(err, report.ErrSchoolNotFound, "finding school by ID")
	}
	return s, nil
}

func (repo reportRepository) GetSchoolByName(ctx context.Context, districtID, name string) (report.School, error) {
	var s report.School
	q := `SELECT id, district_id, name, created_at FROM schools WHERE district_id = $1 AND name = $2`
	if err := repo.db.QueryRowxContext(ctx, q, districtID, name).Scan(&s.ID, &s.DistrictID, &s.Name, &s.CreatedAt); err != nil {
		return report.School{}, repo.trapNoRowsErr(err, report.ErrSchoolNotFound, "finding school by name")
	}
	return s, nil
}

func (repo reportRepository) QuerySchoolsByDistrict(ctx context.Context, districtID string) ([]report.School, error) {
	schools := make([]report.School, 0)
	q := `SELECT id, district_id, name, created_at FROM schools WHERE district_id = $1 ORDER BY created_at`
	rows, err := repo.db.QueryxContext(ctx, q, districtID)
	if err != nil {
		return nil, errors.Wrap(err, "querying schools by district")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var s report.School
		if err = rows.Scan(&s.ID, &s.DistrictID, &s.Name, &s.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning school")
		}
		schools = append(schools, s)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "querying schools by district")
	}
	return schools, nil
}

func (repo reportRepository) SchoolAggregates(ctx context.Context, schoolID string) (report.SchoolStats, error) {
	school, err := repo.GetSchoolByID(ctx, schoolID)
	if err != nil {
		return report.SchoolStats{}, err
	}

	stats := report.SchoolStats{
		SchoolID:   school.ID,
		SchoolName: school.Name,
		Classrooms: make([]report.ClassroomStats, 0),
	}

	// per-classroom counts come from subqueries so the joins cannot
	// multiply rows against each other
	q := `
		SELECT c.id, c.name, c.teacher_id,
		       COALESCE(array_length(c.parent_ids, 1), 0) AS parent_count,
		       (SELECT COUNT(*) FROM students s WHERE s.class_id = c.id) AS student_count,
		       (SELECT COALESCE(SUM(p.points), 0) FROM point_records p WHERE p.class_id = c.id) AS total_points
		FROM classrooms c
		WHERE c.school_id = $1
		ORDER BY c.created_at`
	rows, err := repo.db.QueryxContext(ctx, q, schoolID)
	if err != nil {
		return report.SchoolStats{}, errors.Wrap(err, "querying school aggregates")
	}
	defer func() { _ = rows.Close() }()

	teachers := make(map[string]struct{})
	for rows.Next() {
		var cs report.ClassroomStats
		if err = rows.Scan(&cs.ClassID, &cs.Name, &cs.TeacherID, &cs.ParentCount, &cs.StudentCount, &cs.TotalPoints); err != nil {
			return report.SchoolStats{}, errors.Wrap(err, "scanning classroom aggregates")
		}
		teachers[cs.TeacherID] = struct{}{}
		stats.StudentCount += cs.StudentCount
		stats.ParentCount += cs.ParentCount
		stats.TotalPoints += cs.TotalPoints
		stats.Classrooms = append(stats.Classrooms, cs)
	}
	if err = rows.Err(); err != nil {
		return report.SchoolStats{}, errors.Wrap(err, "querying school aggregates")
	}

	stats.ClassroomCount = len(stats.Classrooms)
	stats.TeacherCount = len(teachers)
	return stats, nil
}

func (repo reportRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}
