package report

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// WriteXLSX renders a school report as a spreadsheet: a summary block
// followed by one row per classroom.
func WriteXLSX(stats SchoolStats, w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "School Report"
	idx := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	summary := [][]interface{}{
		{"School", stats.SchoolName},
		{"Classrooms", stats.ClassroomCount},
		{"Teachers", stats.TeacherCount},
		{"Students", stats.StudentCount},
		{"Parents", stats.ParentCount},
		{"Total points", stats.TotalPoints},
	}
	for i, row := range summary {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrap(err, "writing summary row")
		}
	}

	header := []interface{}{"Classroom", "Students", "Parents", "Total points", "Avg points/student"}
	headerRow := len(summary) + 2
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", headerRow), &header); err != nil {
		return errors.Wrap(err, "writing header row")
	}
	for i, cs := range stats.Classrooms {
		row := []interface{}{cs.Name, cs.StudentCount, cs.ParentCount, cs.TotalPoints, cs.AvgPointsPerStudent}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", headerRow+1+i), &row); err != nil {
			return errors.Wrapf(err, "writing classroom row %d", i)
		}
	}

	return errors.Wrap(f.Write(w), "writing workbook")
}
