package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/spine-admin/internal/core/events"
	"github.com/frahmantamala/spine-admin/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect the audit events published by the services`,
}

var listEventsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the audited event types",
	Run: func(cmd *cobra.Command, args []string) {
		for _, eventType := range events.AuditEventTypes {
			fmt.Println(eventType)
		}
	},
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a sample event through the audit handler",
	Long:  `Publish a sample event to a local bus with the audit handler attached, to check the audit log format`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishSampleEvent(cmd.Context(), args[0])
	},
}

var eventSubject string

// auditHandler writes every audited event to the log.
func auditHandler(lg *slog.Logger) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		lg.InfoContext(ctx, "audit",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"occurred_at", event.OccurredAt(),
			"payload", event.Payload())
		return nil
	}
}

func sampleEvent(eventType, subject string) (events.Event, error) {
	switch eventType {
	case events.EventTypeUserRegistered:
		return events.NewUserRegisteredEvent(1, subject, "Finance", "USER", subject), nil
	case events.EventTypeUserPasswordChanged:
		return events.NewUserPasswordChangedEvent(subject), nil
	case events.EventTypeUserEmailChanged:
		return events.NewUserEmailChangedEvent(subject, subject+"@example.com"), nil
	case events.EventTypeUserRoleChanged:
		return events.NewUserRoleChangedEvent(1, 3, "MANAGER"), nil
	case events.EventTypeRoleRenamed:
		return events.NewRoleRenamedEvent(3, "MANAGER", "TEAM_LEAD", 0), nil
	case events.EventTypeRolePermissionsChanged:
		return events.NewRolePermissionsChangedEvent(3, []string{"INVOICE_READ"}), nil
	}
	return nil, fmt.Errorf("unknown event type %q", eventType)
}

func publishSampleEvent(ctx context.Context, eventType string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lg := logger.LoggerWrapper()

	event, err := sampleEvent(eventType, eventSubject)
	if err != nil {
		return err
	}

	bus := events.NewEventBus(lg)
	bus.SubscribeMany(events.AuditEventTypes, auditHandler(lg))

	lg.Info("publishing sample event", "event_type", eventType, "event_id", event.EventID())
	return bus.PublishSync(ctx, event)
}

func init() {
	publishEventCmd.Flags().StringVar(&eventSubject, "subject", "sample.user", "Username used in the sample payload")

	eventCmd.AddCommand(listEventsCmd)
	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
