package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/channels/gochannel"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/eventbus"
)

// NewEventBus creates the in-process event bus the engine publishes
// lifecycle events on.
func NewEventBus(logger *slog.Logger) (eventbus.EventBus, error) {
	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create event channel: %w", err)
	}

	return eventbus.NewWatermillEventBus(pub, sub), nil
}
