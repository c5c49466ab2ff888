package report

import "time"

// District groups schools under one administration.
type District struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// School belongs to one district.
type School struct {
	ID         string    `json:"id"`
	DistrictID string    `json:"district_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// ClassroomStats is the per-classroom slice of a school report.
type ClassroomStats struct {
	ClassID             string  `json:"class_id"`
	Name                string  `json:"name"`
	TeacherID           string  `json:"teacher_id"`
	StudentCount        int     `json:"student_count"`
	ParentCount         int     `json:"parent_count"`
	TotalPoints         int     `json:"total_points"`
	AvgPointsPerStudent float64 `json:"avg_points_per_student"`
}

// SchoolStats is a read-only aggregation over one school.
type SchoolStats struct {
	SchoolID       string           `json:"school_id"`
	SchoolName     string           `json:"school_name"`
	ClassroomCount int              `json:"classroom_count"`
	TeacherCount   int              `json:"teacher_count"`
	StudentCount   int              `json:"student_count"`
	ParentCount    int              `json:"parent_count"`
	TotalPoints    int              `json:"total_points"`
	Classrooms     []ClassroomStats `json:"classrooms"`
}

// DistrictStats rolls SchoolStats up across a district.
type DistrictStats struct {
	DistrictID   string        `json:"district_id"`
	DistrictName string        `json:"district_name"`
	SchoolCount  int           `json:"school_count"`
	StudentCount int           `json:"student_count"`
	TotalPoints  int           `json:"total_points"`
	Schools      []SchoolStats `json:"schools"`
}

// SeedResult summarizes an idempotent demo-data run.
type SeedResult struct {
	Created  []string `json:"created"`
	Existing []string `json:"existing"`
}
