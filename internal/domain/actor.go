package domain

import "github.com/google/uuid"

// Roles known to the lending engine
const (
	RoleStudent   = "student"
	RoleTeacher   = "teacher"
	RoleStaff     = "staff"
	RoleLibrarian = "librarian"
)

// Actor is the request-scoped identity every operation receives.
// It is always passed explicitly, never read from ambient state.
type Actor struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

// CanBorrow reports whether the actor's role is eligible to hold loans.
// Staff and librarians operate the desk; they do not borrow.
func (a Actor) CanBorrow() bool {
	return a.Role == RoleStudent || a.Role == RoleTeacher
}

// IsStaff reports whether the actor may run desk operations
// (approve, reject, collect, waive, stock changes).
func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleLibrarian
}

func IsValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleStaff, RoleLibrarian:
		return true
	}
	return false
}
