package types

// DefaultJobTitle is assigned to users who register without a job title.
const DefaultJobTitle = "ConnectApp User"

// User represents a registered account.
type User struct {
	// ID is the unique, server-assigned identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Email is the lowercased address used as the login key. It is unique
	// across all users.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt digest of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// JobTitle is shown next to the user's name on their posts.
	JobTitle string `json:"job_title" db:"job_title"`
}
