package entity

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleCleaner  UserRole = "cleaner"
	RoleAdmin    UserRole = "admin"
)

type User struct {
	BaseNoDelete
	Name         string   `db:"name"`
	Email        string   `db:"email"`
	PasswordHash string   `db:"password"`
	Role         UserRole `db:"role"`
	IsActive     bool     `db:"is_active"`
}
