package model

import (
    "strings"
    "time"
)

// Role names recognized by the authorization gate.
const (
    RoleUser  = "user"
    RoleAdmin = "admin"
)

// User represents an identity record as stored in the `users` table (or
// the `users` collection when the Mongo store is used).  ID is kept as an
// opaque string so both backends fit: MySQL renders its auto-increment key
// in decimal, Mongo uses the ObjectID hex.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name, lower-cased and trimmed.
//  Email        – unique email address, lower-cased and trimmed.
//  FullName     – display name, lower-cased and trimmed.
//  PasswordHash – bcrypt hash; never holds plaintext once persisted.
//  Role         – authorization role (user or admin).
//  RefreshToken – last issued refresh token; stored for bookkeeping only.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           string    `json:"_id" bson:"-"`
    Username     string    `json:"username" bson:"username"`
    Email        string    `json:"email" bson:"email"`
    FullName     string    `json:"fullName" bson:"full_name"`
    PasswordHash string    `json:"-" bson:"password_hash"`
    Role         string    `json:"role" bson:"role"`
    RefreshToken string    `json:"-" bson:"refresh_token,omitempty"`
    CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
    UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`

    pendingPassword *string
}

// Normalize applies the canonical form to the unique lookup fields.  Stores
// call it before every insert and every lookup by username or email.
func (u *User) Normalize() {
    u.Username = NormalizeKey(u.Username)
    u.Email = NormalizeKey(u.Email)
    u.FullName = NormalizeKey(u.FullName)
    u.Role = strings.ToLower(strings.TrimSpace(u.Role))
    if u.Role == "" {
        u.Role = RoleUser
    }
}

// NormalizeKey lower-cases and trims a username or email.
func NormalizeKey(s string) string {
    return strings.ToLower(strings.TrimSpace(s))
}

// SetPassword marks plain as the new password.  The value is hashed by the
// store on the next save; until then PasswordHash keeps its old value.
func (u *User) SetPassword(plain string) {
    u.pendingPassword = &plain
}

// PendingPassword returns the plaintext password waiting to be hashed and
// whether the password was modified since the record was loaded.
func (u *User) PendingPassword() (string, bool) {
    if u.pendingPassword == nil {
        return "", false
    }
    return *u.pendingPassword, true
}

// ApplyPasswordHash stores a freshly computed hash and clears the pending
// plaintext.
func (u *User) ApplyPasswordHash(hash string) {
    u.PasswordHash = hash
    u.pendingPassword = nil
}
