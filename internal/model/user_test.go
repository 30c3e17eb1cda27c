package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_Normalize(t *testing.T) {
	u := User{Username: "  Alice ", Email: "ALICE@Example.COM ", FullName: " Alice Liddell", Role: " ADMIN "}
	u.Normalize()

	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "alice liddell", u.FullName)
	assert.Equal(t, RoleAdmin, u.Role)
}

func TestUser_NormalizeDefaultsRole(t *testing.T) {
	u := User{Username: "bob"}
	u.Normalize()
	assert.Equal(t, RoleUser, u.Role)
}

func TestUser_PendingPassword(t *testing.T) {
	u := User{PasswordHash: "old-hash"}

	_, ok := u.PendingPassword()
	assert.False(t, ok)

	u.SetPassword("s3cret")
	plain, ok := u.PendingPassword()
	assert.True(t, ok)
	assert.Equal(t, "s3cret", plain)
	assert.Equal(t, "old-hash", u.PasswordHash)

	u.ApplyPasswordHash("new-hash")
	_, ok = u.PendingPassword()
	assert.False(t, ok)
	assert.Equal(t, "new-hash", u.PasswordHash)
}
