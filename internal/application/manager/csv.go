package manager

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/alem-hub/student-records/internal/domain/shared"
	"github.com/alem-hub/student-records/internal/infrastructure/csvio"
)

// ══════════════════════════════════════════════════════════════════════════════
// CSV EXCHANGE
// ══════════════════════════════════════════════════════════════════════════════

// ImportFailure describes one skipped CSV line.
type ImportFailure struct {
	Line   int
	ID     string
	Reason string
}

// ImportReport summarizes an import.
type ImportReport struct {
	Imported int
	Skipped  int
	Failures []ImportFailure
}

// ExportStudentsToCSV writes every student, ordered by name, to path.
func (m *Manager) ExportStudentsToCSV(ctx context.Context, path string) error {
	if err := m.Init(ctx); err != nil {
		return err
	}

	students, err := m.store.Students().List(ctx)
	if err != nil {
		m.logger.Error("failed to read students for export", "error", err)
		return shared.WrapError("manager", "ExportStudentsToCSV", shared.ErrPersistence, "failed to read students", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return shared.WrapError("manager", "ExportStudentsToCSV", shared.ErrIO, "failed to create file", err)
	}

	w := csvio.NewWriter(file)
	writeErr := w.WriteHeader()
	for _, s := range students {
		if writeErr != nil {
			break
		}
		writeErr = w.Write(s)
	}
	if writeErr == nil {
		writeErr = w.Flush()
	}
	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		m.logger.Error("failed to write export", "path", path, "error", writeErr)
		return shared.WrapError("manager", "ExportStudentsToCSV", shared.ErrIO, "failed to write file", writeErr)
	}

	m.logger.Info("students exported", "path", path, "count", len(students))
	return nil
}

// ImportStudentsFromCSV inserts every valid line of path as a new student,
// keeping the ID from the file. Bad lines are skipped and reported; only a
// file-level failure is returned as an error.
func (m *Manager) ImportStudentsFromCSV(ctx context.Context, path string) (ImportReport, error) {
	var report ImportReport

	if err := m.Init(ctx); err != nil {
		return report, err
	}

	file, err := os.Open(path)
	if err != nil {
		return report, shared.WrapError("manager", "ImportStudentsFromCSV", shared.ErrIO, "failed to open file", err)
	}
	defer file.Close()

	skip := func(line int, id string, reason error) {
		report.Skipped++
		report.Failures = append(report.Failures, ImportFailure{Line: line, ID: id, Reason: reason.Error()})
		m.logger.Warn("skipping csv line", "line", line, "student_id", id, "reason", reason)
	}

	r := csvio.NewReader(file)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skip(rec.Line, "", err)
				continue
			}
			return report, shared.WrapError("manager", "ImportStudentsFromCSV", shared.ErrIO, "failed to read file", err)
		}

		id := ""
		if len(rec.Fields) > 0 {
			id = rec.Fields[0]
		}

		s, err := csvio.DecodeRecord(rec.Fields)
		if err != nil {
			skip(rec.Line, id, err)
			continue
		}

		if err := m.AddStudent(ctx, s); err != nil {
			skip(rec.Line, s.ID(), err)
			continue
		}
		report.Imported++
	}

	m.logger.Info("students imported", "path", path, "imported", report.Imported, "skipped", report.Skipped)
	return report, nil
}
