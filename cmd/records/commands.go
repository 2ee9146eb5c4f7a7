package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alem-hub/student-records/config"
	"github.com/alem-hub/student-records/internal/domain/course"
	"github.com/alem-hub/student-records/internal/domain/student"
	"github.com/alem-hub/student-records/pkg/timeutil"
)

// appKey хранит *app в контексте команды.
type appKey struct{}

func contextWithApp(cmd *cobra.Command, a *app) context.Context {
	return context.WithValue(cmd.Context(), appKey{}, a)
}

func appFrom(cmd *cobra.Command) *app {
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}

// ══════════════════════════════════════════════════════════════════════════════
// ROOT
// ══════════════════════════════════════════════════════════════════════════════

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "records",
		Short: "Student records: grades, courses and enrollments",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			cmd.SetContext(contextWithApp(cmd, a))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a := appFrom(cmd); a != nil {
				a.Close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default records.yaml if present)")
	flags.String("driver", "", "database driver: sqlite or postgres")
	flags.String("dsn", "", "sqlite file path or postgres URL")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")

	root.AddCommand(
		newAddCmd(),
		newUpdateCmd(),
		newRemoveCmd(),
		newShowCmd(),
		newListCmd(),
		newSearchCmd(),
		newAverageCmd(),
		newCoursesCmd(),
		newGPACmd(),
		newExportCmd(),
		newImportCmd(),
		newMigrateCmd(),
	)

	return root
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func newAddCmd() *cobra.Command {
	var (
		id, name, date string
		age            int
		grade          float64
		courses        []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := student.RestoreParams{ID: id, Name: name, Age: age, Grade: grade, Courses: courses}
			if date != "" {
				parsed, err := timeutil.ParseISODate(date)
				if err != nil {
					return err
				}
				params.EnrollmentDate = parsed
			}

			s, err := student.Restore(params)
			if err != nil {
				return err
			}

			if err := appFrom(cmd).manager.AddStudent(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.ID())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&id, "id", "", "student ID (generated when empty)")
	f.StringVar(&name, "name", "", "full name")
	f.IntVar(&age, "age", 0, "age (18-100)")
	f.Float64Var(&grade, "grade", 0, "overall grade (0-100, two decimals)")
	f.StringVar(&date, "date", "", "enrollment date YYYY-MM-DD (default today)")
	f.StringSliceVar(&courses, "courses", nil, "course codes, comma separated")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("age")

	return cmd
}

func newUpdateCmd() *cobra.Command {
	var (
		name    string
		age     int
		grade   float64
		courses []string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a student's fields and courses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			s, err := a.manager.GetStudent(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			f := cmd.Flags()
			if f.Changed("name") {
				if err := s.SetName(name); err != nil {
					return err
				}
			}
			if f.Changed("age") {
				if err := s.SetAge(age); err != nil {
					return err
				}
			}
			if f.Changed("grade") {
				if err := s.SetGrade(grade); err != nil {
					return err
				}
			}
			if f.Changed("courses") {
				for _, code := range s.Courses() {
					s.RemoveCourse(code)
				}
				for _, code := range courses {
					s.AddCourse(code)
				}
			}

			return a.manager.UpdateStudent(cmd.Context(), s.ID(), s)
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "full name")
	f.IntVar(&age, "age", 0, "age (18-100)")
	f.Float64Var(&grade, "grade", 0, "overall grade (0-100, two decimals)")
	f.StringSliceVar(&courses, "courses", nil, "replacement course codes, comma separated")

	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a student and their enrollments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return appFrom(cmd).manager.RemoveStudent(cmd.Context(), args[0])
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			s, err := a.manager.GetStudent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, s.Details())
			fmt.Fprintf(out, "GPA: %.2f\n", a.manager.StudentGPA(cmd.Context(), s))
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all students ordered by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderStudents(cmd.OutOrStdout(), appFrom(cmd).manager.DisplayAllStudents(cmd.Context()))
			return nil
		},
	}
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find students whose name or ID contains query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			renderStudents(cmd.OutOrStdout(), appFrom(cmd).manager.SearchStudents(cmd.Context(), args[0]))
			return nil
		},
	}
}

func newAverageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "average",
		Short: "Average grade over students with a grade above zero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", appFrom(cmd).manager.CalculateAverageGrade(cmd.Context()))
			return nil
		},
	}
}

func newGPACmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gpa <id>",
		Short: "Credit-weighted GPA on a 4.0 scale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			s, err := a.manager.GetStudent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", a.manager.StudentGPA(cmd.Context(), s))
			return nil
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func newCoursesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List the course catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderCourses(cmd.OutOrStdout(), appFrom(cmd).manager.ListCourses(cmd.Context()))
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <code> <name> <credits>",
			Short: "Add a course",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				credits, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("invalid credits %q: %w", args[2], err)
				}
				c, err := course.New(args[0], args[1], credits)
				if err != nil {
					return err
				}
				return appFrom(cmd).manager.AddCourse(cmd.Context(), c)
			},
		},
		&cobra.Command{
			Use:   "remove <code>",
			Short: "Remove a course and its enrollments",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return appFrom(cmd).manager.RemoveCourse(cmd.Context(), args[0])
			},
		},
	)

	return cmd
}

// ══════════════════════════════════════════════════════════════════════════════
// CSV & SCHEMA COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export all students to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return appFrom(cmd).manager.ExportStudentsToCSV(cmd.Context(), args[0])
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Import students from CSV, skipping bad lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := appFrom(cmd).manager.ImportStudentsFromCSV(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderImportReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the schema and seed the default catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if a == nil {
				return errors.New("application not initialized")
			}
			if err := a.manager.Init(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}
