package events_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/frahmantamala/spine-admin/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AuditLog", func() {
	ctx := context.Background()

	It("returns entries newest first", func() {
		log := events.NewAuditLog(10)
		Expect(log.Record(ctx, events.NewUserPasswordChangedEvent("ann"))).To(Succeed())
		Expect(log.Record(ctx, events.NewUserEmailChangedEvent("ann", "a@x.com"))).To(Succeed())

		recent := log.Recent(0, "")
		Expect(recent).To(HaveLen(2))
		Expect(recent[0].Type).To(Equal(events.EventTypeUserEmailChanged))
		Expect(recent[1].Type).To(Equal(events.EventTypeUserPasswordChanged))
		Expect(recent[0].ID).NotTo(BeEmpty())
	})

	It("evicts the oldest entries past capacity", func() {
		log := events.NewAuditLog(3)
		for _, name := range []string{"a", "b", "c", "d", "e"} {
			Expect(log.Record(ctx, events.NewUserPasswordChangedEvent(name))).To(Succeed())
		}

		Expect(log.Len()).To(Equal(3))
		recent := log.Recent(10, "")
		Expect(recent).To(HaveLen(3))
		Expect(recent[0].Payload).To(HaveKeyWithValue("username", "e"))
		Expect(recent[2].Payload).To(HaveKeyWithValue("username", "c"))
	})

	It("applies the limit and type filter", func() {
		log := events.NewAuditLog(10)
		Expect(log.Record(ctx, events.NewUserPasswordChangedEvent("ann"))).To(Succeed())
		Expect(log.Record(ctx, events.NewUserRoleChangedEvent(1, 3, "MANAGER"))).To(Succeed())
		Expect(log.Record(ctx, events.NewUserPasswordChangedEvent("bob"))).To(Succeed())

		Expect(log.Recent(1, "")).To(HaveLen(1))
		filtered := log.Recent(0, events.EventTypeUserPasswordChanged)
		Expect(filtered).To(HaveLen(2))
		Expect(filtered[0].Payload).To(HaveKeyWithValue("username", "bob"))
	})

	It("records events delivered through the bus", func() {
		log := events.NewAuditLog(0)
		bus := events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
		bus.SubscribeMany(events.AuditEventTypes, log.Record)

		Expect(bus.PublishSync(ctx, events.NewRoleRenamedEvent(3, "MANAGER", "TEAM_LEAD", 2))).To(Succeed())
		Expect(log.Recent(0, "")).To(HaveLen(1))
		Expect(log.Recent(0, "")[0].Type).To(Equal(events.EventTypeRoleRenamed))
	})
})
