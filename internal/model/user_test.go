package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleAtLeast(t *testing.T) {
	roles := []string{RoleClerk, RoleManager, RoleAdmin}
	for i, role := range roles {
		for j, minimum := range roles {
			assert.Equal(t, i >= j, RoleAtLeast(role, minimum), "%s vs %s", role, minimum)
		}
	}

	// Unknown roles never pass.
	assert.False(t, RoleAtLeast("owner", RoleClerk))
	assert.False(t, RoleAtLeast(RoleAdmin, "owner"))
	assert.False(t, RoleAtLeast("", ""))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleManager))
	assert.False(t, ValidRole("Manager"))
	assert.False(t, ValidRole(""))
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword("1234567"))
	assert.NoError(t, ValidatePassword("12345678"))
	assert.NoError(t, ValidatePassword("a much longer passphrase"))
}
