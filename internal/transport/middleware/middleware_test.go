package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/metrics"
	"github.com/frahmantamala/spine-admin/internal/transport/middleware"
	"github.com/frahmantamala/spine-admin/pkg/logger"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var _ = Describe("RecoveryMiddleware", func() {
	It("turns a panic into a generic 500 envelope", func() {
		var buf bytes.Buffer
		h := middleware.RecoveryMiddleware(bufferLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom: secret detail")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		var body map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["success"]).To(BeFalse())
		Expect(body["message"]).To(Equal("Internal server error"))
		Expect(body["code"]).To(Equal(string(internal.ErrCodeInternal)))
		Expect(rec.Body.String()).NotTo(ContainSubstring("secret detail"))
		Expect(buf.String()).To(ContainSubstring("panic recovered"))
	})

	It("lets http.ErrAbortHandler through", func() {
		var buf bytes.Buffer
		h := middleware.RecoveryMiddleware(bufferLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		Expect(func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
		}).To(PanicWith(http.ErrAbortHandler))
	})
})

var _ = Describe("RequestID", func() {
	var seen *slog.Logger

	handler := func() http.Handler {
		return chiMiddleware.RequestID(middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = logger.FromContext(r.Context())
		})))
	}

	BeforeEach(func() {
		seen = nil
	})

	It("echoes an incoming trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.TraceIDHeader, "trace-123")
		rec := httptest.NewRecorder()

		handler().ServeHTTP(rec, req)

		Expect(rec.Header().Get(middleware.TraceIDHeader)).To(Equal("trace-123"))
		Expect(seen).NotTo(BeNil())
	})

	It("generates a uuid when none is sent", func() {
		rec := httptest.NewRecorder()
		handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(rec.Header().Get(middleware.TraceIDHeader))
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("UserContext", func() {
	It("passes requests without a principal untouched", func() {
		called := false
		h := middleware.UserContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			_, ok := logger.FromContext(r.Context())
			Expect(ok).To(BeFalse())
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(called).To(BeTrue())
	})

	It("binds the principal's role to the request logger", func() {
		var buf bytes.Buffer
		logger.InitWithWriter(&buf, "info", "text")

		h := middleware.UserContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.From(r.Context()).Info("inside")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(internal.ContextWithPrincipal(req.Context(), &internal.Principal{
			UserID:     7,
			Username:   "alice",
			RoleID:     2,
			RoleName:   "ADMIN",
			Department: "Finance",
		}))
		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(buf.String()).To(ContainSubstring("role=ADMIN"))
		Expect(buf.String()).To(ContainSubstring("department=Finance"))
	})
})

var _ = Describe("LoggingMiddleware", func() {
	var (
		buf bytes.Buffer
		h   http.Handler
	)

	BeforeEach(func() {
		buf.Reset()
		h = middleware.LoggingMiddleware(bufferLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"accessToken":"jwt-value","user":{"username":"alice"}}`))
		}))
	})

	It("masks credentials in request and response bodies and headers", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"username":"alice","password":"hunter22","currentPassword":"oldpass99"}`))
		req.Header.Set("Authorization", "Bearer jwt-value")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(rec.Body.String()).To(ContainSubstring("jwt-value"))

		logged := buf.String()
		Expect(logged).To(ContainSubstring("incoming request"))
		Expect(logged).To(ContainSubstring("status_code=201"))
		Expect(logged).To(ContainSubstring("alice"))
		Expect(logged).NotTo(ContainSubstring("hunter22"))
		Expect(logged).NotTo(ContainSubstring("jwt-value"))
		Expect(logged).NotTo(ContainSubstring("oldpass99"))
	})

	It("still lets the handler read the request body", func() {
		var got string
		inner := middleware.LoggingMiddleware(bufferLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var dto struct {
				Username string `json:"username"`
			}
			_ = json.NewDecoder(r.Body).Decode(&dto)
			got = dto.Username
		}))

		inner.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"bob"}`)))
		Expect(got).To(Equal("bob"))
	})

	It("skips health check and scrape endpoints", func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		Expect(buf.String()).To(BeEmpty())
	})
})

var _ = Describe("Metrics", func() {
	It("labels requests with the route pattern", func() {
		m := metrics.New("test", prometheus.NewRegistry())
		r := chi.NewRouter()
		r.Use(middleware.Metrics(m))
		r.Get("/roles/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/roles/42", nil))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/roles/43", nil))

		Expect(testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/roles/{id}", "204"))).To(Equal(2.0))
	})
})

var _ = Describe("CORS", func() {
	It("answers preflight for allowed origins only", func() {
		h := middleware.CORS([]string{"http://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
		req.Header.Set("Origin", "http://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://app.example.com"))

		req = httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})
})
