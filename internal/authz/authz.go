// Package authz holds the single role -> permitted-action table. Role
// checks happen once at the request boundary instead of scattered string
// comparisons in handlers.
package authz

import "github.com/playarena/backend/internal/models"

// Action names one guarded operation
type Action string

const (
	ActionMatchJoin       Action = "match.join"
	ActionMatchLeave      Action = "match.leave"
	ActionMatchCreate     Action = "match.create"
	ActionMatchCancel     Action = "match.cancel"
	ActionResultVerify    Action = "result.verify"
	ActionResultDeclare   Action = "result.declare"
	ActionChallengeCreate Action = "challenge.create"
	ActionChallengeCancel Action = "challenge.cancel"
	ActionScreenshotPost  Action = "screenshot.post"
	ActionWalletView      Action = "wallet.view"
	ActionRuleManage      Action = "rule.manage"
)

var permissions = map[string]map[Action]bool{
	models.RolePlayer: {
		ActionMatchJoin:       true,
		ActionMatchLeave:      true,
		ActionChallengeCreate: true,
		ActionChallengeCancel: true,
		ActionScreenshotPost:  true,
		ActionWalletView:      true,
	},
	models.RoleOperator: {
		ActionMatchCreate:   true,
		ActionMatchCancel:   true,
		ActionResultVerify:  true,
		ActionResultDeclare: true,
		ActionRuleManage:    true,
		ActionWalletView:    true,
	},
}

// Allowed reports whether the role may perform the action
func Allowed(role string, action Action) bool {
	return permissions[role][action]
}
