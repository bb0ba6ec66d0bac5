package models

// ActionType tags one side-effecting step kind in a workflow pipeline.
type ActionType string

const (
	ActionHTTPRequest  ActionType = "http_request"
	ActionEmail        ActionType = "email"
	ActionSMS          ActionType = "sms"
	ActionSlack        ActionType = "slack"
	ActionDiscord      ActionType = "discord"
	ActionTeams        ActionType = "teams"
	ActionNotification ActionType = "notification"
	ActionDatabase     ActionType = "database"
	ActionWebhook      ActionType = "webhook"
	ActionScript       ActionType = "script"
)

// Action is one pipeline step. Params carries the type-specific
// configuration; string values may contain {{path}} placeholders resolved
// against the trigger payload and prior step outputs.
type Action struct {
	Type        ActionType     `json:"type"                  validate:"required"`
	Params      map[string]any `json:"params"`
	StopOnError bool           `json:"stop_on_error,omitempty"`
}
