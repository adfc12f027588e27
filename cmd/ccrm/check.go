package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/ccrm-api/internal/service"
)

func newCheckCmd(a *app) *cobra.Command {
	var studentsFile, coursesFile string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Parse the CSV files in the data directory and report rejected rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files := a.files()

			students, skipped, err := files.ImportStudents(cmd.Context(), studentsFile)
			if err != nil {
				return err
			}
			report(cmd, "students", len(students), skipped)

			courses, skipped, err := files.ImportCourses(cmd.Context(), coursesFile)
			if err != nil {
				return err
			}
			report(cmd, "courses", len(courses), skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&studentsFile, "students", service.DefaultStudentsFile, "student CSV file")
	cmd.Flags().StringVar(&coursesFile, "courses", service.DefaultCoursesFile, "course CSV file")
	return cmd
}

func report(cmd *cobra.Command, entity string, valid int, skipped []service.RowError) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d valid, %d skipped\n", entity, valid, len(skipped))
	for _, row := range skipped {
		fmt.Fprintf(out, "  line %d: %s\n", row.Line, row.Reason)
	}
}
