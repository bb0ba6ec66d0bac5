// Package cmd provides shared initialization for the engine binary.
package cmd

import (
	"log/slog"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/actions/chat"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/actions/email"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/actions/httprequest"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/actions/notification"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/actions/outboundwebhook"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/actions/record"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/actions/sms"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/actions/transform"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/eventbus"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/registry"
)

// ActionConfig carries the engine-level delivery settings actions need.
// Workflow definitions never see credentials; they live here.
type ActionConfig struct {
	SMTP email.SMTPConfig
	SMS  sms.GatewayConfig
}

// NewRegistry builds the action registry with every built-in handler.
func NewRegistry(
	logger *slog.Logger,
	publisher eventbus.EventPublisher,
	store persistence.RecordStore,
	config ActionConfig,
) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(httprequest.NewActionFactory())
	reg.RegisterAction(outboundwebhook.NewActionFactory())
	reg.RegisterAction(chat.NewSlackActionFactory())
	reg.RegisterAction(chat.NewDiscordActionFactory())
	reg.RegisterAction(chat.NewTeamsActionFactory())
	reg.RegisterAction(email.NewActionFactory(config.SMTP))
	reg.RegisterAction(sms.NewActionFactory(config.SMS))
	reg.RegisterAction(notification.NewActionFactory(publisher))
	reg.RegisterAction(record.NewActionFactory(store))
	reg.RegisterAction(transform.NewActionFactory())

	return reg
}
