package inmemdb

import (
	"context"

	"github.com/hallpass-app/hallpass/core/report"
)

type reportRepository struct {
	db *DB
}

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CreateDistrict(_ context.Context, d report.District) (report.District, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	d.ID = newID()
	repo.db.districts[d.ID] = &rec[report.District]{seq: repo.db.nextSeq(), val: d}
	return d, nil
}

func (repo *reportRepository) GetDistrictByID(_ context.Context, id string) (report.District, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.districts[id]; ok {
		return r.val, nil
	}
	return report.District{}, report.ErrDistrictNotFound
}

func (repo *reportRepository) GetDistrictByName(_ context.Context, name string) (report.District, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, r := range repo.db.districts {
		if r.val.Name == name {
			return r.val, nil
		}
	}
	return report.District{}, report.ErrDistrictNotFound
}

func (repo *reportRepository) CreateSchool(_ context.Context, s report.School) (report.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = newID()
	repo.db.schools[s.ID] = &rec[report.School]{seq: repo.db.nextSeq(), val: s}
	return s, nil
}

func (repo *reportRepository) GetSchoolByID(_ context.Context, id string) (report.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.schools[id]; ok {
		return r.val, nil
	}
	return report.School{}, report.ErrSchoolNotFound
}

func (repo *reportRepository) GetSchoolByName(_ context.Context, districtID, name string) (report.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, r := range repo.db.schools {
		if r.val.DistrictID == districtID && r.val.Name == name {
			return r.val, nil
		}
	}
	return report.School{}, report.ErrSchoolNotFound
}

func (repo *reportRepository) QuerySchoolsByDistrict(_ context.Context, districtID string) ([]report.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return ordered(repo.db.schools, func(s report.School) bool { return s.DistrictID == districtID }), nil
}

func (repo *reportRepository) SchoolAggregates(_ context.Context, schoolID string) (report.SchoolStats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	school, ok := repo.db.schools[schoolID]
	if !ok {
		return report.SchoolStats{}, report.ErrSchoolNotFound
	}

	stats := report.SchoolStats{
		SchoolID:   school.val.ID,
		SchoolName: school.val.Name,
		Classrooms: make([]report.ClassroomStats, 0),
	}
	teachers := make(map[string]struct{})

	for _, c := range ordered(repo.db.classrooms, nil) {
		if c.SchoolID != schoolID {
			continue
		}
		cs := report.ClassroomStats{
			ClassID:     c.ID,
			Name:        c.Name,
			TeacherID:   c.TeacherID,
			ParentCount: len(c.ParentIDs),
		}
		for _, sr := range repo.db.students {
			if sr.val.ClassID == c.ID {
				cs.StudentCount++
			}
		}
		for _, pr := range repo.db.points {
			if pr.val.ClassID == c.ID {
				cs.TotalPoints += pr.val.Points
			}
		}
		teachers[c.TeacherID] = struct{}{}
		stats.StudentCount += cs.StudentCount
		stats.ParentCount += cs.ParentCount
		stats.TotalPoints += cs.TotalPoints
		stats.Classrooms = append(stats.Classrooms, cs)
	}

	stats.ClassroomCount = len(stats.Classrooms)
	stats.TeacherCount = len(teachers)
	return stats, nil
}
