package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frahmantamala/spine-admin/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEvents(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Events Suite")
}

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("delivers published events asynchronously even after the request context ends", func() {
		var received atomic.Value
		bus.Subscribe(events.EventTypeUserEmailChanged, func(ctx context.Context, e events.Event) error {
			if ctx.Err() == nil {
				received.Store(e.Payload())
			}
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(bus.Publish(ctx, events.NewUserEmailChangedEvent("jdoe", "j@example.com"))).To(Succeed())

		Eventually(received.Load).Should(HaveKeyWithValue("email", "j@example.com"))
	})

	It("ignores events without subscribers", func() {
		Expect(bus.Publish(context.Background(), events.NewUserPasswordChangedEvent("jdoe"))).To(Succeed())
	})

	It("returns handler failures from PublishSync", func() {
		bus.Subscribe(events.EventTypeRoleRenamed, func(context.Context, events.Event) error {
			return errors.New("boom")
		})
		err := bus.PublishSync(context.Background(), events.NewRoleRenamedEvent(3, "MANAGER", "LEAD", 2))
		Expect(err).To(MatchError(ContainSubstring("role.renamed")))
	})

	It("subscribes one handler to several types", func() {
		var count atomic.Int32
		bus.SubscribeMany(events.AuditEventTypes, func(context.Context, events.Event) error {
			count.Add(1)
			return nil
		})
		Expect(bus.PublishSync(context.Background(), events.NewUserRoleChangedEvent(1, 2, "ADMIN"))).To(Succeed())
		Expect(bus.PublishSync(context.Background(), events.NewUserRegisteredEvent(1, "jdoe", "Finance", "USER", ""))).To(Succeed())
		Expect(count.Load()).To(Equal(int32(2)))
	})
})

var _ = Describe("EventBus shutdown", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("drains asynchronous handlers", func() {
		release := make(chan struct{})
		var finished atomic.Bool
		bus.Subscribe(events.EventTypeUserPasswordChanged, func(context.Context, events.Event) error {
			<-release
			finished.Store(true)
			return nil
		})
		Expect(bus.Publish(context.Background(), events.NewUserPasswordChangedEvent("jdoe"))).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		Expect(bus.Drain(ctx)).To(MatchError(context.DeadlineExceeded))

		close(release)
		Expect(bus.Drain(context.Background())).To(Succeed())
		Expect(finished.Load()).To(BeTrue())
	})

	It("turns handler panics into errors", func() {
		bus.Subscribe(events.EventTypeRoleRenamed, func(context.Context, events.Event) error {
			panic("bad handler")
		})
		err := bus.PublishSync(context.Background(), events.NewRoleRenamedEvent(3, "MANAGER", "LEAD", 0))
		Expect(err).To(MatchError(ContainSubstring("panicked")))
	})
})
