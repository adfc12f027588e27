package service

import (
	"context"
)

// SeedSampleData loads a small demonstration data set: three students, two
// courses and one enrollment.
func SeedSampleData(ctx context.Context, records *RecordsService, catalog *CatalogService) error {
	students := []CreateStudentRequest{
		{ID: "S001", Name: "John Doe", Email: "john.doe@university.edu", RegistrationNumber: "2023CSE001", Year: 2, Department: "Computer Science"},
		{ID: "S002", Name: "Jane Smith", Email: "jane.smith@university.edu", RegistrationNumber: "2023EEE002", Year: 1, Department: "Electrical Engineering"},
		{ID: "S003", Name: "Bob Johnson", Email: "bob.johnson@university.edu", RegistrationNumber: "2023MEC003", Year: 3, Department: "Mechanical Engineering"},
	}
	for _, req := range students {
		if _, err := records.CreateStudent(ctx, req); err != nil {
			return err
		}
	}

	courses := []CreateCourseRequest{
		{CourseID: "CS101", CourseCode: "CS101", Title: "Introduction to Programming", Credits: 3, Department: "Computer Science", Semester: "Fall 2023"},
		{CourseID: "MA201", CourseCode: "MA201", Title: "Linear Algebra", Credits: 4, Department: "Mathematics", Semester: "Fall 2023"},
	}
	for _, req := range courses {
		if _, err := catalog.CreateCourse(ctx, req); err != nil {
			return err
		}
	}

	_, err := records.EnrollStudentInCourse(ctx, "S001", "CS101")
	return err
}
