package user_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/spine-admin/internal/rbac"
	"github.com/frahmantamala/spine-admin/internal/transport"
	"github.com/frahmantamala/spine-admin/internal/user"
)

var _ = Describe("User Handler", func() {
	var (
		repo   *fakeRepository
		router chi.Router
	)

	BeforeEach(func() {
		repo = newFakeRepository()
		repo.add(1, "ann", rbac.UserRoleID)
		repo.add(2, "bob", rbac.UserRoleID)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service := user.NewService(repo, fakeStats{}, logger)
		h := user.NewHandler(transport.NewBaseHandler(logger), service)

		router = chi.NewRouter()
		router.Get("/admin/users", h.ListUsers)
		router.Get("/admin/users/{id}", h.GetUser)
		router.Put("/admin/users/{id}/role", h.UpdateUserRole)
		router.Put("/admin/users/roles", h.BulkUpdateRoles)
		router.Get("/admin/roles", h.ListRoles)
	})

	send := func(method, target string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, target, &buf))
		var out map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		return rec, out
	}

	It("lists users with a total", func() {
		rec, body := send(http.MethodGet, "/admin/users", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(body["total"]).To(Equal(2.0))
	})

	It("returns 404 for an unknown user and 400 for a bad id", func() {
		rec, body := send(http.MethodGet, "/admin/users/9", nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(body["message"]).To(Equal("User not found"))

		rec, _ = send(http.MethodGet, "/admin/users/abc", nil)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	Describe("single role update", func() {
		It("updates the role", func() {
			rec, body := send(http.MethodPut, "/admin/users/1/role", user.UpdateRoleDTO{Role: "finance"})
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(body["message"]).To(Equal("User role updated successfully"))
			Expect(repo.users[1].RoleID).To(Equal(rbac.FinanceRoleID))
		})

		It("validates the role", func() {
			rec, body := send(http.MethodPut, "/admin/users/1/role", user.UpdateRoleDTO{Role: " "})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(body["message"]).To(Equal("Role is required"))

			rec, body = send(http.MethodPut, "/admin/users/1/role", user.UpdateRoleDTO{Role: "OWNER"})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(body["message"]).To(Equal("Invalid role: OWNER"))
		})

		It("reports a missing user", func() {
			rec, body := send(http.MethodPut, "/admin/users/9/role", user.UpdateRoleDTO{Role: "ADMIN"})
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(body["message"]).To(Equal("Failed to update user role - user not found or database error"))
		})
	})

	Describe("bulk role update", func() {
		It("updates every user", func() {
			rec, body := send(http.MethodPut, "/admin/users/roles", user.BulkUpdateRolesDTO{UserIDs: []int64{1, 2}, Role: "MANAGER"})
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(body["message"]).To(Equal("Roles updated successfully for 2 users"))
			Expect(body["updatedCount"]).To(Equal(2.0))
		})

		It("requires ids", func() {
			rec, body := send(http.MethodPut, "/admin/users/roles", user.BulkUpdateRolesDTO{Role: "MANAGER"})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(body["message"]).To(Equal("User IDs are required"))
		})

		It("reports partial failure with per-id results", func() {
			rec, body := send(http.MethodPut, "/admin/users/roles", user.BulkUpdateRolesDTO{UserIDs: []int64{1, 9}, Role: "MANAGER"})
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(body["success"]).To(BeFalse())
			Expect(body["updatedCount"]).To(Equal(1.0))
			result := body["result"].(map[string]interface{})
			Expect(result["failed"]).To(Equal(1.0))
		})
	})

	It("lists the assignable roles", func() {
		_, body := send(http.MethodGet, "/admin/roles", nil)
		Expect(body["roles"]).To(ConsistOf("ADMIN", "USER", "MANAGER", "FINANCE"))
	})
})
