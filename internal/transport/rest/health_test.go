package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/spine-admin/internal/transport/rest"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

var _ = Describe("Health", func() {
	serve := func(checks map[string]rest.Pinger) (*httptest.ResponseRecorder, rest.HealthResponse) {
		router := chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{
			Health: rest.NewHealthHandlerWithChecks(checks, time.Second),
		}, rest.Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

		var resp rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		return rec, resp
	}

	It("is healthy when every dependency answers", func() {
		rec, resp := serve(map[string]rest.Pinger{
			"postgres": pingerFunc(func(context.Context) error { return nil }),
		})
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(resp.Status).To(Equal(rest.HealthHealthy))
	})

	It("reports 503 and the failing component", func() {
		rec, resp := serve(map[string]rest.Pinger{
			"postgres": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
		})
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(resp.Status).To(Equal(rest.HealthUnhealthy))
		Expect(resp.Components["postgres"].Message).To(Equal("connection refused"))
	})

	It("leaves API routes unregistered without an auth handler", func() {
		router := chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{}, rest.Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})
