package models

import (
	"strings"
	"time"

	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

// Role is the capability shared by every person tracked by the institution.
type Role interface {
	ID() string
	Name() string
	Email() string
	Role() string
	DisplayInfo() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
}

// Role names.
const (
	RoleStudent    = "Student"
	RoleInstructor = "Instructor"
)

// person carries identity fields embedded by Student and Instructor.
type person struct {
	id        string
	name      string
	email     string
	createdAt time.Time
	updatedAt time.Time
}

func newPerson(id, name, email string) (person, error) {
	if !IsValidID(id) {
		return person{}, appErrors.Clone(appErrors.ErrValidation, "id cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return person{}, appErrors.Clone(appErrors.ErrValidation, "name cannot be empty")
	}
	if !IsValidEmail(email) {
		return person{}, appErrors.Clone(appErrors.ErrValidation, "invalid email format")
	}
	now := time.Now()
	return person{id: id, name: name, email: email, createdAt: now, updatedAt: now}, nil
}

// ID returns the immutable identifier.
func (p *person) ID() string { return p.id }

// Name returns the display name.
func (p *person) Name() string { return p.name }

// Email returns the contact address.
func (p *person) Email() string { return p.email }

// CreatedAt returns the creation timestamp.
func (p *person) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns the last mutation timestamp.
func (p *person) UpdatedAt() time.Time { return p.updatedAt }

// SetName replaces the name; blank names are rejected.
func (p *person) SetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "name cannot be empty")
	}
	p.name = name
	p.touch()
	return nil
}

// SetEmail replaces the email after format validation.
func (p *person) SetEmail(email string) error {
	if !IsValidEmail(email) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid email format")
	}
	p.email = email
	p.touch()
	return nil
}

func (p *person) touch() {
	p.updatedAt = time.Now()
}

// RoleSummary renders "<role>: <display info>" for any Role.
func RoleSummary(r Role) string {
	return r.Role() + " | " + r.DisplayInfo()
}
