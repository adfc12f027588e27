package models

import "sort"

// Sort keys accepted by SortStudents.
const (
	SortByName         = "name"
	SortByYear         = "year"
	SortByDepartment   = "department"
	SortByRegistration = "registration"
	SortByGPA          = "gpa"
)

// Sort keys accepted by SortCourses.
const (
	SortByCode       = "code"
	SortByTitle      = "title"
	SortByCredits    = "credits"
	SortByEnrollment = "enrollment"
)

// SortStudents orders students in place; GPA sorts highest first. Unknown keys sort by id.
func SortStudents(students []*Student, key string) {
	less := func(i, j int) bool { return students[i].ID() < students[j].ID() }
	switch key {
	case SortByName:
		less = func(i, j int) bool { return students[i].Name() < students[j].Name() }
	case SortByYear:
		less = func(i, j int) bool { return students[i].Year() < students[j].Year() }
	case SortByDepartment:
		less = func(i, j int) bool {
			if students[i].Department() == students[j].Department() {
				return students[i].Year() < students[j].Year()
			}
			return students[i].Department() < students[j].Department()
		}
	case SortByRegistration:
		less = func(i, j int) bool { return students[i].RegistrationNumber() < students[j].RegistrationNumber() }
	case SortByGPA:
		less = func(i, j int) bool { return students[i].CalculateGPA() > students[j].CalculateGPA() }
	}
	sort.SliceStable(students, less)
}

// SortCourses orders courses in place; credits and enrollment sort highest first.
func SortCourses(courses []*Course, key string) {
	less := func(i, j int) bool { return courses[i].CourseID() < courses[j].CourseID() }
	switch key {
	case SortByCode:
		less = func(i, j int) bool { return courses[i].CourseCode() < courses[j].CourseCode() }
	case SortByTitle:
		less = func(i, j int) bool { return courses[i].Title() < courses[j].Title() }
	case SortByCredits:
		less = func(i, j int) bool { return courses[i].Credits() > courses[j].Credits() }
	case SortByEnrollment:
		less = func(i, j int) bool { return courses[i].CurrentEnrollment() > courses[j].CurrentEnrollment() }
	case SortByDepartment:
		less = func(i, j int) bool {
			if courses[i].Department() == courses[j].Department() {
				return courses[i].CourseCode() < courses[j].CourseCode()
			}
			return courses[i].Department() < courses[j].Department()
		}
	}
	sort.SliceStable(courses, less)
}
