package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("TokenService", func() {
	var (
		now     time.Time
		service *TokenService
	)

	ginkgo.BeforeEach(func() {
		now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		service = NewTokenService(testSecret, time.Hour, 24*time.Hour).WithClock(func() time.Time { return now })
	})

	ginkgo.It("should round-trip the username of an access token", func() {
		token, err := service.IssueAccessToken("alice", "Finance")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		gomega.Expect(service.Validate(token)).To(gomega.BeTrue())
		gomega.Expect(service.IsRefreshToken(token)).To(gomega.BeFalse())

		username, err := service.DecodeUsername(token)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(username).To(gomega.Equal("alice"))
	})

	ginkgo.It("should embed department, roles and timestamps", func() {
		token, err := service.IssueAccessToken("alice", "trace sheets")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		claims, err := service.ParseAccessToken(token)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(claims.Subject).To(gomega.Equal("alice"))
		gomega.Expect(claims.Department).To(gomega.Equal("trace sheets"))
		gomega.Expect(claims.Roles).To(gomega.Equal([]string{"USER", "TRACE_SHEETS"}))
		gomega.Expect(claims.IssuedAt.Time).To(gomega.BeTemporally("==", now))
		gomega.Expect(claims.ExpiresAt.Time).To(gomega.BeTemporally("==", now.Add(time.Hour)))
	})

	ginkgo.It("should keep refresh and access tokens apart", func() {
		refresh, err := service.IssueRefreshToken("alice")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		gomega.Expect(service.Validate(refresh)).To(gomega.BeTrue())
		gomega.Expect(service.IsRefreshToken(refresh)).To(gomega.BeTrue())

		_, err = service.ParseAccessToken(refresh)
		gomega.Expect(err).To(gomega.MatchError(ErrWrongTokenKind))
	})

	ginkgo.It("should fail expired tokens", func() {
		token, err := service.IssueAccessToken("alice", "Finance")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		refresh, err := service.IssueRefreshToken("alice")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		now = now.Add(2 * time.Hour)

		gomega.Expect(service.Validate(token)).To(gomega.BeFalse())
		_, err = service.ParseAccessToken(token)
		gomega.Expect(err).To(gomega.MatchError(ErrTokenExpired))
		_, err = service.DecodeUsername(token)
		gomega.Expect(err).To(gomega.HaveOccurred())

		gomega.Expect(service.Validate(refresh)).To(gomega.BeTrue())
		now = now.Add(24 * time.Hour)
		gomega.Expect(service.IsRefreshToken(refresh)).To(gomega.BeFalse())
	})

	ginkgo.It("should fail tokens signed with another secret", func() {
		other := NewTokenService(strings.Repeat("x", 32), time.Hour, time.Hour).WithClock(func() time.Time { return now })
		token, err := other.IssueRefreshToken("alice")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		gomega.Expect(service.Validate(token)).To(gomega.BeFalse())
		gomega.Expect(service.IsRefreshToken(token)).To(gomega.BeFalse())
	})

	ginkgo.It("should fail tampered and malformed tokens without panicking", func() {
		token, err := service.IssueAccessToken("alice", "Finance")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		parts := strings.Split(token, ".")
		forged, err := NewTokenService(testSecret, time.Hour, time.Hour).
			WithClock(func() time.Time { return now }).
			IssueAccessToken("mallory", "Finance")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		tampered := parts[0] + "." + strings.Split(forged, ".")[1] + "." + parts[2]

		for _, bad := range []string{tampered, "", "abc", "a.b.c"} {
			gomega.Expect(service.Validate(bad)).To(gomega.BeFalse())
			_, err := service.DecodeUsername(bad)
			gomega.Expect(err).To(gomega.MatchError(ErrInvalidToken))
		}
	})

	ginkgo.It("should reject other signing algorithms", func() {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		gomega.Expect(service.Validate(token)).To(gomega.BeFalse())
	})

	ginkgo.It("should require an expiration", func() {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		gomega.Expect(service.Validate(token)).To(gomega.BeFalse())
	})
})

var _ = ginkgo.Describe("Departments", func() {
	ginkgo.It("should canonicalize case-insensitively", func() {
		d, ok := CanonicalDepartment(" OPERATIONS ")
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(d).To(gomega.Equal("Operations"))

		_, ok = CanonicalDepartment("Sales")
		gomega.Expect(ok).To(gomega.BeFalse())
	})

	ginkgo.It("should map departments to role labels", func() {
		gomega.Expect(RolesForDepartment("finance")).To(gomega.Equal([]string{"USER", "FINANCE"}))
		gomega.Expect(RolesForDepartment("Operations")).To(gomega.Equal([]string{"USER", "OPERATIONS"}))
		gomega.Expect(RolesForDepartment("Trace Sheets")).To(gomega.Equal([]string{"USER", "TRACE_SHEETS"}))
		gomega.Expect(RolesForDepartment("HR")).To(gomega.Equal([]string{"USER"}))
	})

	ginkgo.It("should always include the base flags", func() {
		flags := PermissionFlags("unknown", false)
		gomega.Expect(flags).To(gomega.Equal(map[string]bool{"read_own_data": true, "update_own_profile": true}))

		finance := PermissionFlags("FINANCE", false)
		gomega.Expect(finance).To(gomega.HaveLen(6))
		gomega.Expect(finance).To(gomega.HaveKeyWithValue("export_financial_data", true))
	})
})
