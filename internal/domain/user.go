package domain

import "time"

// Role enumerates the two access levels in the directory.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// User is a directory entry for anyone who files or works tickets.
// Rows originate from the identity provider via the provisioning upsert;
// after that the directory, not the token, is the role authority.
type User struct {
	ID         string
	Email      string
	FirstName  string
	LastName   string
	Role       Role
	Department string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullName joins the display name parts, tolerating either being empty.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
