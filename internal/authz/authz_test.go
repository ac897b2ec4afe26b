package authz

import (
	"testing"

	"github.com/playarena/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPlayerPermissions(t *testing.T) {
	assert.True(t, Allowed(models.RolePlayer, ActionMatchJoin))
	assert.True(t, Allowed(models.RolePlayer, ActionChallengeCreate))
	assert.True(t, Allowed(models.RolePlayer, ActionWalletView))

	assert.False(t, Allowed(models.RolePlayer, ActionMatchCreate))
	assert.False(t, Allowed(models.RolePlayer, ActionResultDeclare))
	assert.False(t, Allowed(models.RolePlayer, ActionRuleManage))
}

func TestOperatorPermissions(t *testing.T) {
	assert.True(t, Allowed(models.RoleOperator, ActionMatchCreate))
	assert.True(t, Allowed(models.RoleOperator, ActionMatchCancel))
	assert.True(t, Allowed(models.RoleOperator, ActionResultVerify))

	// Operators never take slots or open challenges
	assert.False(t, Allowed(models.RoleOperator, ActionMatchJoin))
	assert.False(t, Allowed(models.RoleOperator, ActionChallengeCreate))
}

func TestUnknownRoleDeniedEverything(t *testing.T) {
	assert.False(t, Allowed("", ActionMatchJoin))
	assert.False(t, Allowed("guest", ActionWalletView))
}
