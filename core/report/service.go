package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	pkgerrors "github.com/pkg/errors"
)

var (
	// errors
	ErrSchoolNotFound   = errors.New("school not found")
	ErrDistrictNotFound = errors.New("district not found")
)

// Demo dataset created by Seed. Fixed so repeated runs are no-ops.
var (
	seedDistrictName = "Lakeview Unified"
	seedSchoolNames  = []string{"Lakeview Elementary", "Riverside Middle", "Summit High"}
)

type (
	Repository interface {
		CreateDistrict(ctx context.Context, d District) (District, error)
		GetDistrictByID(ctx context.Context, id string) (District, error)
		GetDistrictByName(ctx context.Context, name string) (District, error)
		CreateSchool(ctx context.Context, s School) (School, error)
		GetSchoolByID(ctx context.Context, id string) (School, error)
		GetSchoolByName(ctx context.Context, districtID, name string) (School, error)
		QuerySchoolsByDistrict(ctx context.Context, districtID string) ([]School, error)
		// SchoolAggregates returns raw counts for a school: classroom rows
		// carry counts and point totals but no derived averages.
		SchoolAggregates(ctx context.Context, schoolID string) (SchoolStats, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SchoolStats aggregates one school's classrooms, deriving per-classroom
// averages. A classroom with no students averages 0, not a division error.
func (svc *Service) SchoolStats(ctx context.Context, schoolID string) (SchoolStats, error) {
	stats, err := svc.repo.SchoolAggregates(ctx, schoolID)
	if err != nil {
		return SchoolStats{}, err
	}
	for i := range stats.Classrooms {
		stats.Classrooms[i].AvgPointsPerStudent = avgPoints(stats.Classrooms[i])
	}
	return stats, nil
}

// TopClassrooms ranks classrooms by average points per student, descending.
// Ties keep their input order.
func (svc *Service) TopClassrooms(ctx context.Context, schoolID string, limit int) ([]ClassroomStats, error) {
	stats, err := svc.SchoolStats(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	ranked := make([]ClassroomStats, len(stats.Classrooms))
	copy(ranked, stats.Classrooms)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AvgPointsPerStudent > ranked[j].AvgPointsPerStudent
	})
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// DistrictStats rolls up every school in the district.
func (svc *Service) DistrictStats(ctx context.Context, districtID string) (DistrictStats, error) {
	district, err := svc.repo.GetDistrictByID(ctx, districtID)
	if err != nil {
		return DistrictStats{}, err
	}
	schools, err := svc.repo.QuerySchoolsByDistrict(ctx, districtID)
	if err != nil {
		return DistrictStats{}, pkgerrors.Wrap(err, "querying district schools")
	}

	ds := DistrictStats{
		DistrictID:   district.ID,
		DistrictName: district.Name,
		SchoolCount:  len(schools),
		Schools:      make([]SchoolStats, 0, len(schools)),
	}
	for _, school := range schools {
		stats, err := svc.SchoolStats(ctx, school.ID)
		if err != nil {
			return DistrictStats{}, pkgerrors.Wrapf(err, "aggregating school %s", school.ID)
		}
		ds.StudentCount += stats.StudentCount
		ds.TotalPoints += stats.TotalPoints
		ds.Schools = append(ds.Schools, stats)
	}
	return ds, nil
}

// Seed idempotently creates the fixed demo district and schools.
func (svc *Service) Seed(ctx context.Context) (SeedResult, error) {
	var res SeedResult
	now := time.Now().UTC()

	district, err := svc.repo.GetDistrictByName(ctx, seedDistrictName)
	switch err {
	case nil:
		res.Existing = append(res.Existing, fmt.Sprintf("district: %s", district.Name))
	case ErrDistrictNotFound:
		if district, err = svc.repo.CreateDistrict(ctx, District{Name: seedDistrictName, CreatedAt: now}); err != nil {
			return SeedResult{}, pkgerrors.Wrap(err, "seeding district")
		}
		res.Created = append(res.Created, fmt.Sprintf("district: %s", district.Name))
	default:
		return SeedResult{}, pkgerrors.Wrap(err, "finding seed district")
	}

	for _, name := range seedSchoolNames {
		school, err := svc.repo.GetSchoolByName(ctx, district.ID, name)
		switch err {
		case nil:
			res.Existing = append(res.Existing, fmt.Sprintf("school: %s", school.Name))
		case ErrSchoolNotFound:
			school, err = svc.repo.CreateSchool(ctx, School{DistrictID: district.ID, Name: name, CreatedAt: now})
			if err != nil {
				return SeedResult{}, pkgerrors.Wrapf(err, "seeding school %s", name)
			}
			res.Created = append(res.Created, fmt.Sprintf("school: %s", school.Name))
		default:
			return SeedResult{}, pkgerrors.Wrapf(err, "finding seed school %s", name)
		}
	}
	return res, nil
}

// avgPoints guards the zero-student classroom: its average is 0.
func avgPoints(cs ClassroomStats) float64 {
	if cs.StudentCount == 0 {
		return 0
	}
	return float64(cs.TotalPoints) / float64(cs.StudentCount)
}
