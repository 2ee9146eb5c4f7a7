package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/alem-hub/student-records/internal/application/manager"
	"github.com/alem-hub/student-records/internal/domain/course"
	"github.com/alem-hub/student-records/internal/domain/student"
	"github.com/alem-hub/student-records/pkg/timeutil"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderStudents(w io.Writer, students []*student.Student) {
	if len(students) == 0 {
		_, _ = fmt.Fprintln(w, "(no students)")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Age", "Grade", "Enrolled", "Courses"})
	for _, s := range students {
		t.AppendRow(table.Row{
			s.ID(),
			s.Name(),
			s.Age(),
			fmt.Sprintf("%.2f", s.Grade()),
			timeutil.FormatDate(s.EnrollmentDate()),
			strings.Join(s.Courses(), ", "),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(students)})
	t.Render()
}

func renderCourses(w io.Writer, catalog course.Catalog) {
	if len(catalog) == 0 {
		_, _ = fmt.Fprintln(w, "(no courses)")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Code", "Name", "Credits"})
	for _, c := range catalog {
		t.AppendRow(table.Row{c.Code(), c.Name(), c.Credits()})
	}
	t.Render()
}

func renderImportReport(w io.Writer, report manager.ImportReport) {
	_, _ = fmt.Fprintf(w, "imported: %d, skipped: %d\n", report.Imported, report.Skipped)
	if len(report.Failures) == 0 {
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Line", "ID", "Reason"})
	for _, f := range report.Failures {
		t.AppendRow(table.Row{f.Line, f.ID, f.Reason})
	}
	t.Render()
}
