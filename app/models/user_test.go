package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("alice", "alice@example.com", "s3cretpass")
	require.NoError(t, err)

	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, ROLE_USER, u.Role)
	assert.NotEqual(t, "s3cretpass", u.Password, "password must be stored hashed")
	assert.True(t, u.CheckPassword("s3cretpass"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestCreateUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"short username", "ab", "alice@example.com", "s3cretpass"},
		{"bad email", "alice", "not-an-email", "s3cretpass"},
		{"short password", "alice", "alice@example.com", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateUser(tt.username, tt.email, tt.password)
			assert.Error(t, err)
		})
	}
}

func TestIsAdmin(t *testing.T) {
	assert.False(t, (&User{Role: ROLE_USER}).IsAdmin())
	assert.True(t, (&User{Role: ROLE_ADMIN}).IsAdmin())
}
