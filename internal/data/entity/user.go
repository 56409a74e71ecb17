package entity

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	Base
	Username       string   `db:"username"`
	Email          string   `db:"email"`
	PasswordDigest string   `db:"password_digest"`
	FullName       string   `db:"full_name"`
	Phone          *string  `db:"phone"`
	Role           UserRole `db:"role"`
	IsActive       bool     `db:"is_active"`
}
