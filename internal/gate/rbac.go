package gate

// Role is a closed set; unknown roles are denied everything.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
	RoleViewer  Role = "viewer"
)

// ParseRole maps a string to a known Role, reporting false for anything else.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleUser, RoleViewer:
		return Role(s), true
	default:
		return "", false
	}
}

// Resource and action names used as capability keys.
const (
	ResourceInsight            = "insight"
	ResourceAIAction           = "ai_action"
	ResourceEvent              = "event"
	ResourceFeatureFlag        = "feature_flag"
	ResourceNotificationConfig = "notification_config"
	ResourceAudit              = "audit"
	ResourceStats              = "stats"
)

const (
	ActionRead    = "read"
	ActionCreate  = "create"
	ActionDismiss = "dismiss"
	ActionResolve = "resolve"
	ActionRun     = "run"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionExecute = "execute"
	ActionUpdate  = "update"
)

// capabilities is the role x resource x action grant table. Anything not
// listed is denied.
var capabilities = map[Role]map[string]map[string]bool{
	RoleAdmin: {
		ResourceInsight:            {ActionRead: true, ActionDismiss: true, ActionResolve: true, ActionRun: true},
		ResourceAIAction:           {ActionRead: true, ActionCreate: true, ActionApprove: true, ActionReject: true, ActionExecute: true},
		ResourceEvent:              {ActionRead: true, ActionCreate: true},
		ResourceFeatureFlag:        {ActionRead: true, ActionUpdate: true},
		ResourceNotificationConfig: {ActionRead: true, ActionUpdate: true},
		ResourceAudit:              {ActionRead: true},
		ResourceStats:              {ActionRead: true},
	},
	RoleManager: {
		ResourceInsight:  {ActionRead: true, ActionDismiss: true, ActionResolve: true, ActionRun: true},
		ResourceAIAction: {ActionRead: true, ActionCreate: true, ActionApprove: true, ActionReject: true},
		ResourceEvent:    {ActionRead: true, ActionCreate: true},
		ResourceAudit:    {ActionRead: true},
		ResourceStats:    {ActionRead: true},
	},
	RoleUser: {
		ResourceInsight:  {ActionRead: true},
		ResourceAIAction: {ActionRead: true, ActionCreate: true},
		ResourceEvent:    {ActionRead: true, ActionCreate: true},
		ResourceStats:    {ActionRead: true},
	},
	RoleViewer: {
		ResourceInsight: {ActionRead: true},
		ResourceEvent:   {ActionRead: true},
		ResourceStats:   {ActionRead: true},
	},
}

// HasPermission is a pure lookup against the capability table. Unknown roles,
// resources and actions all deny (fail-closed).
func HasPermission(role Role, resource, action string) bool {
	resources, ok := capabilities[role]
	if !ok {
		return false
	}
	actions, ok := resources[resource]
	if !ok {
		return false
	}
	return actions[action]
}
