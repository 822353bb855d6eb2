// Package models defines the records persisted by the storefront and the
// values handed to the presentation layer.
package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Profile struct {
	Phone            string   `json:"phone"`
	City             string   `json:"city"`
	State            string   `json:"state"`
	EnrolledCourses  []int    `json:"enrolledCourses"`
	CompletedCourses []int    `json:"completedCourses"`
	FavoriteTopics   []string `json:"favoriteTopics"`
}

// Account is the stored user record. It carries the password digest and
// must never leave the services package; use PublicAccount instead.
type Account struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      Role       `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	LastLogin *time.Time `json:"lastLogin"`
	Profile   Profile    `json:"profile"`
}

func (a Account) RecordID() string { return a.ID }

// PublicAccount is an Account without credentials.
type PublicAccount struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	LastLogin *time.Time `json:"lastLogin"`
	Profile   Profile    `json:"profile"`
}

func (a PublicAccount) IsAdmin() bool { return a.Role == RoleAdmin }

// IsEnrolled reports whether courseID is in the enrolled list.
func (p Profile) IsEnrolled(courseID int) bool {
	for _, id := range p.EnrolledCourses {
		if id == courseID {
			return true
		}
	}
	return false
}
