package model

import "time"

// User represents an application user record as stored in the `users`
// table.  The json tags are omitted here because these structs are used by
// the repository layer; handlers define their own response types.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	FirstName    – given name (users.firstname).
//	LastName     – family name (users.lastname).
//	Phone        – contact phone number.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	CountryID    – reference into the countries list.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	FirstName    string    // users.firstname
	LastName     string    // users.lastname
	Phone        string    // users.phone
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	CountryID    uint64    // users.country_id
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Session models a live bearer session.  The ID equals the `jti` claim of
// the bearer token; deleting the row revokes the token.
type Session struct {
	ID        string    // sessions.id
	UserID    uint64    // sessions.user_id
	ExpiresAt time.Time // sessions.expires_at
	CreatedAt time.Time // sessions.created_at
}

// PasswordReset models a row in `password_resets`.  Only the SHA-256 hex
// digest of the token handed to the user is stored.  UpdatedAt is the
// timestamp the expiry window is measured from.
type PasswordReset struct {
	Email     string    // password_resets.email
	TokenHash string    // password_resets.token
	CreatedAt time.Time // password_resets.created_at
	UpdatedAt time.Time // password_resets.updated_at
}
