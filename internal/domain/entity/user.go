package entity

import "time"

// User is an institution-scoped account holding a role code. User and role
// administration is external; the core only reads users to resolve the next
// responsible validator.
type User struct {
	ID            int64     `json:"id"`
	InstitutionID int64     `json:"institution_id"`
	RoleCode      string    `json:"role_code"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
}
