package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/rbac"
	"github.com/frahmantamala/spine-admin/internal/transport"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		mockRepo *mockUserRepository
		tokens   *TokenService
		handler  *Handler
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockUserRepository()
		tokens = NewTokenService(testSecret, time.Hour, 24*time.Hour)
		svc := NewService(mockRepo, tokens, RegistrationPolicy{SelfRegistrableRoles: []string{"USER"}}, bcrypt.MinCost, testLogger())
		handler = NewHandler(transport.NewBaseHandler(testLogger()), svc)
		mockRepo.seed("alice", "secret1", "a@x.com", "Finance", "", rbac.UserRoleID)
		mockRepo.seed("root", "secret1", "root@x.com", "Operations", "", rbac.AdminRoleID)
	})

	do := func(h http.HandlerFunc, method, target string, body interface{}, principal *internal.Principal) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			gomega.Expect(json.NewEncoder(&buf).Encode(body)).To(gomega.Succeed())
		}
		req := httptest.NewRequest(method, target, &buf)
		if principal != nil {
			req = req.WithContext(internal.ContextWithPrincipal(context.Background(), principal))
		}
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder) map[string]interface{} {
		var out map[string]interface{}
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(gomega.Succeed())
		return out
	}

	ginkgo.Describe("Login", func() {
		ginkgo.It("should return tokens on success", func() {
			rec := do(handler.Login, http.MethodPost, "/auth/login", LoginDTO{Username: "alice", Password: "secret1"}, nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			body := decode(rec)
			gomega.Expect(body["success"]).To(gomega.BeTrue())
			gomega.Expect(body["tokenType"]).To(gomega.Equal("Bearer"))
			gomega.Expect(body["user"]).ToNot(gomega.HaveKey("passwordHash"))
		})

		ginkgo.It("should return 401 with the generic message", func() {
			rec := do(handler.Login, http.MethodPost, "/auth/login", LoginDTO{Username: "alice", Password: "nope"}, nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			body := decode(rec)
			gomega.Expect(body["success"]).To(gomega.BeFalse())
			gomega.Expect(body["message"]).To(gomega.Equal("Invalid credentials"))
			gomega.Expect(body["code"]).To(gomega.Equal("INVALID_CREDENTIALS"))
		})

		ginkgo.It("should reject a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{"))
			rec := httptest.NewRecorder()
			handler.Login(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.It("should register with 201 and surface departments on failure", func() {
		dto := RegisterDTO{Username: "dan", Password: "secret1", Email: "d@x.com", Name: "Dan", Location: "LA", Department: "Operations"}
		rec := do(handler.Register, http.MethodPost, "/auth/register", dto, nil)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))

		dto.Username = "eve"
		dto.Email = "e@x.com"
		dto.Department = "Legal"
		rec = do(handler.Register, http.MethodPost, "/auth/register", dto, nil)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		gomega.Expect(decode(rec)["details"]).To(gomega.HaveKey("validDepartments"))
	})

	ginkgo.Describe("Profile", func() {
		ginkgo.It("should default to the caller", func() {
			rec := do(handler.Profile, http.MethodGet, "/auth/profile", nil, &internal.Principal{Username: "alice", RoleID: rbac.UserRoleID})

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			user := decode(rec)["user"].(map[string]interface{})
			gomega.Expect(user["username"]).To(gomega.Equal("alice"))
		})

		ginkgo.It("should forbid reading another account unless admin", func() {
			rec := do(handler.Profile, http.MethodGet, "/auth/profile?username=root", nil, &internal.Principal{Username: "alice", RoleID: rbac.UserRoleID})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))

			rec = do(handler.Profile, http.MethodGet, "/auth/profile?username=alice", nil, &internal.Principal{Username: "root", RoleID: rbac.AdminRoleID})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})
	})

	ginkgo.It("should change the caller's password", func() {
		principal := &internal.Principal{Username: "alice", RoleID: rbac.UserRoleID}
		rec := do(handler.ChangePassword, http.MethodPost, "/auth/change-password",
			ChangePasswordDTO{CurrentPassword: "secret1", NewPassword: "secret9"}, principal)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(decode(rec)["message"]).To(gomega.Equal("Password changed successfully"))
	})

	ginkgo.It("should create users with an assignable role", func() {
		dto := RegisterDTO{Username: "fay", Password: "secret1", Email: "f@x.com", Name: "Fay", Location: "LA", Department: "Finance", Role: "FINANCE"}
		rec := do(handler.CreateUser, http.MethodPost, "/admin/users", dto, &internal.Principal{Username: "root", RoleID: rbac.AdminRoleID})

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))
		gomega.Expect(decode(rec)["message"]).To(gomega.Equal("User created successfully with role: FINANCE"))
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var (
			seen *internal.Principal
			next http.Handler
		)

		ginkgo.BeforeEach(func() {
			seen = nil
			next = handler.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = internal.PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))
		})

		serve := func(header string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, req)
			return rec
		}

		ginkgo.It("should put the principal in the context", func() {
			token, err := tokens.IssueAccessToken("alice", "Finance")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			rec := serve("Bearer " + token)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(seen.Username).To(gomega.Equal("alice"))
			gomega.Expect(seen.RoleID).To(gomega.Equal(rbac.UserRoleID))
		})

		ginkgo.It("should distinguish a missing header from a bad token", func() {
			missing := serve("")
			gomega.Expect(missing.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decode(missing)["code"]).To(gomega.Equal("MISSING_AUTH_HEADER"))

			basic := serve("Basic abc")
			gomega.Expect(decode(basic)["code"]).To(gomega.Equal("MISSING_AUTH_HEADER"))

			bad := serve("Bearer garbage")
			gomega.Expect(bad.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decode(bad)["code"]).To(gomega.Equal("INVALID_TOKEN"))
			gomega.Expect(seen).To(gomega.BeNil())
		})

		ginkgo.It("should refuse refresh tokens", func() {
			token, err := tokens.IssueRefreshToken("alice")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			rec := serve("Bearer " + token)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decode(rec)["code"]).To(gomega.Equal("WRONG_TOKEN_KIND"))
		})

		ginkgo.It("should refuse tokens of deleted users", func() {
			token, err := tokens.IssueAccessToken("alice", "Finance")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			delete(mockRepo.users, "alice")

			rec := serve("Bearer " + token)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})
})
