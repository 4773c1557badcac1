package rbac_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/metrics"
	"github.com/frahmantamala/spine-admin/internal/rbac"
	"github.com/frahmantamala/spine-admin/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("RBACAuthorization", func() {
	var (
		graph *recordingGraph
		m     *metrics.Metrics
		ra    *rbac.RBACAuthorization
		next  http.Handler
	)

	BeforeEach(func() {
		graph = &recordingGraph{
			names: map[int64]rbac.PermissionSet{
				rbac.ManagerRoleID: rbac.NewPermissionSet("USER_UPDATE"),
			},
		}
		m = metrics.New("test", prometheus.NewRegistry())
		ra = rbac.NewRBACAuthorization(graph, m, testLogger())
		next = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	serve := func(mw func(http.Handler) http.Handler, principal *internal.Principal) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		if principal != nil {
			req = req.WithContext(internal.ContextWithPrincipal(context.Background(), principal))
		}
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, req)
		return rec
	}

	It("returns 401 without a principal", func() {
		rec := serve(ra.RequireManageUsers(), nil)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("returns 403 when the predicate denies", func() {
		rec := serve(ra.RequireManageUsers(), &internal.Principal{UserID: 7, RoleID: rbac.UserRoleID})
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		var body transport.Envelope
		Expect(json.NewDecoder(rec.Body).Decode(&body)).To(Succeed())
		Expect(body.Success).To(BeFalse())
		Expect(body.Message).To(Equal("Forbidden: insufficient permissions"))
		Expect(testutil.ToFloat64(m.AuthorizationDenialsTotal.WithLabelValues("manage_users"))).To(Equal(1.0))
	})

	It("passes through when the predicate allows", func() {
		Expect(serve(ra.RequireManageUsers(), &internal.Principal{RoleID: rbac.ManagerRoleID}).Code).To(Equal(http.StatusNoContent))
		Expect(serve(ra.RequireManageUsers(), &internal.Principal{RoleID: rbac.AdminRoleID}).Code).To(Equal(http.StatusNoContent))
	})

	It("checks explicit permissions", func() {
		Expect(serve(ra.RequirePermission("USER_UPDATE"), &internal.Principal{RoleID: rbac.ManagerRoleID}).Code).To(Equal(http.StatusNoContent))
		Expect(serve(ra.RequirePermission("USER_DELETE"), &internal.Principal{RoleID: rbac.ManagerRoleID}).Code).To(Equal(http.StatusForbidden))
	})

	It("restricts admin-only routes to ADMIN", func() {
		Expect(serve(ra.RequireAdmin(), &internal.Principal{RoleID: rbac.ManagerRoleID}).Code).To(Equal(http.StatusForbidden))
		Expect(serve(ra.RequireAdmin(), &internal.Principal{RoleID: rbac.AdminRoleID}).Code).To(Equal(http.StatusNoContent))
	})
})
