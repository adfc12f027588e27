package models

import "time"

// MirrorStudent is the row shape of the optional SQL roster mirror.
type MirrorStudent struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Email              string    `db:"email" json:"email"`
	RegistrationNumber string    `db:"registration_number" json:"registration_number"`
	Year               int       `db:"year" json:"year"`
	Department         string    `db:"department" json:"department"`
	Active             bool      `db:"active" json:"active"`
	GPA                float64   `db:"gpa" json:"gpa"`
	EnrolledCredits    int       `db:"enrolled_credits" json:"enrolled_credits"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	SyncedAt           time.Time `db:"synced_at" json:"synced_at"`
}

// MirrorFilter narrows mirror listings. Zero values match everything.
type MirrorFilter struct {
	Department string
	Active     *bool
}

// ToMirror flattens a student into a mirror row stamped with syncedAt.
func (s *Student) ToMirror(syncedAt time.Time) MirrorStudent {
	return MirrorStudent{
		ID:                 s.id,
		Name:               s.name,
		Email:              s.email,
		RegistrationNumber: s.registrationNumber,
		Year:               s.year,
		Department:         s.department,
		Active:             s.active,
		GPA:                s.CalculateGPA(),
		EnrolledCredits:    s.CommittedCredits(),
		CreatedAt:          s.createdAt,
		SyncedAt:           syncedAt,
	}
}
