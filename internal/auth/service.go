package auth

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/core/events"
	coreUser "github.com/frahmantamala/spine-admin/internal/core/user"
	"github.com/frahmantamala/spine-admin/internal/metrics"
	"github.com/frahmantamala/spine-admin/internal/rbac"
)

var employeeNumberPattern = regexp.MustCompile(`^[0-9]+$`)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*AuthResult, error)
	Login(ctx context.Context, dto LoginDTO) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*RefreshResult, error)
	ChangePassword(ctx context.Context, username string, dto ChangePasswordDTO) error
	UpdateEmail(ctx context.Context, username string, dto UpdateEmailDTO) (*EmailResult, error)
	Profile(ctx context.Context, username string) (*UserView, error)
	CreateUser(ctx context.Context, dto RegisterDTO, createdBy string) (*UserView, error)
	ResolvePrincipal(ctx context.Context, username string) (*internal.Principal, error)
	ParseAccessToken(token string) (*Claims, error)
	ValidDepartments() []string
	SelfRegistrableRoles() []string
}

// RegistrationPolicy lists the roles a caller may pick for themselves at sign-up.
type RegistrationPolicy struct {
	SelfRegistrableRoles []string
}

func (p RegistrationPolicy) allows(role string) bool {
	for _, r := range p.SelfRegistrableRoles {
		if rbac.NormalizeRoleName(r) == role {
			return true
		}
	}
	return false
}

// Service orchestrates registration, login and credential changes.
type Service struct {
	repo       RepositoryAPI
	tokens     TokenIssuer
	policy     RegistrationPolicy
	bcryptCost int
	events     events.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, tokens TokenIssuer, policy RegistrationPolicy, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		tokens:     tokens,
		policy:     policy,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) WithEvents(p events.Publisher) *Service {
	s.events = p
	return s
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) ValidDepartments() []string {
	return ValidDepartments()
}

func (s *Service) SelfRegistrableRoles() []string {
	out := make([]string, 0, len(s.policy.SelfRegistrableRoles))
	for _, r := range s.policy.SelfRegistrableRoles {
		out = append(out, rbac.NormalizeRoleName(r))
	}
	return out
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*AuthResult, error) {
	dto = dto.Normalized()
	if err := dto.Validate(); err != nil {
		s.record("register", err)
		return nil, err
	}

	role := rbac.NormalizeRoleName(dto.Role)
	if !s.policy.allows(role) {
		role = rbac.RoleUser
	}

	u, err := s.createAccount(ctx, dto, role, "Registration failed")
	if err != nil {
		s.record("register", err)
		return nil, err
	}

	result, err := s.issueSession(u, "Registration failed")
	if err != nil {
		s.record("register", err)
		return nil, err
	}
	result.Message = "User registered successfully"

	s.publish(ctx, events.NewUserRegisteredEvent(u.ID, u.Username, u.Department, u.RoleName, u.Username))
	s.record("register", nil)
	return result, nil
}

// CreateUser is account creation on behalf of an administrator; any assignable role is accepted.
func (s *Service) CreateUser(ctx context.Context, dto RegisterDTO, createdBy string) (*UserView, error) {
	dto = dto.Normalized()
	if err := dto.Validate(); err != nil {
		s.record("create_user", err)
		return nil, err
	}

	role := rbac.NormalizeRoleName(dto.Role)
	if !rbac.IsAssignableRole(role) {
		err := internal.NewValidationError("Invalid role selected", internal.ErrCodeInvalidRole).
			WithDetails(map[string]interface{}{"validRoles": rbac.AssignableRoles()})
		s.record("create_user", err)
		return nil, err
	}

	u, err := s.createAccount(ctx, dto, role, "Failed to create user")
	if err != nil {
		s.record("create_user", err)
		return nil, err
	}

	s.publish(ctx, events.NewUserRegisteredEvent(u.ID, u.Username, u.Department, u.RoleName, createdBy))
	s.record("create_user", nil)

	view := toView(u, false)
	return &view, nil
}

func (s *Service) createAccount(ctx context.Context, dto RegisterDTO, role, failureMessage string) (*coreUser.User, error) {
	if err := s.ensureUnique(ctx, dto); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, internal.NewInternalError(failureMessage, err)
	}

	department, _ := CanonicalDepartment(dto.Department)
	u := &coreUser.User{
		Username:       dto.Username,
		PasswordHash:   string(hash),
		Email:          dto.Email,
		Name:           dto.Name,
		Location:       dto.Location,
		Department:     department,
		EmployeeNumber: strings.TrimSpace(dto.EmployeeNumber),
		RoleID:         rbac.RoleIDForName(role),
		RoleName:       role,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return nil, internal.NewConflictError("An account with these details already exists", internal.ErrCodeAccountExists)
		}
		s.logger.ErrorContext(ctx, "failed to create user", "username", dto.Username, "error", err)
		return nil, internal.NewInternalError(failureMessage, err)
	}
	return u, nil
}

func (s *Service) ensureUnique(ctx context.Context, dto RegisterDTO) error {
	exists, err := s.repo.ExistsByUsername(ctx, dto.Username)
	if err != nil {
		return internal.NewInternalError("Registration failed", err)
	}
	if exists {
		return internal.NewConflictError("Username already exists", internal.ErrCodeUsernameTaken)
	}

	exists, err = s.repo.ExistsByEmail(ctx, dto.Email)
	if err != nil {
		return internal.NewInternalError("Registration failed", err)
	}
	if exists {
		return internal.NewConflictError("Email already exists", internal.ErrCodeEmailTaken)
	}

	employeeNumber := strings.TrimSpace(dto.EmployeeNumber)
	if employeeNumber == "" {
		return nil
	}
	exists, err = s.repo.ExistsByEmployeeNumber(ctx, employeeNumber)
	if err != nil {
		return internal.NewInternalError("Registration failed", err)
	}
	if exists {
		return internal.NewConflictError("Employee number already exists", internal.ErrCodeEmployeeNumberTaken)
	}
	return nil
}

func (s *Service) Login(ctx context.Context, dto LoginDTO) (*AuthResult, error) {
	if err := dto.Validate(); err != nil {
		s.record("login", err)
		return nil, err
	}

	u, err := s.findByIdentifier(ctx, strings.TrimSpace(dto.Username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			err = invalidCredentials()
		} else {
			s.logger.ErrorContext(ctx, "failed to look up user", "error", err)
			err = internal.NewInternalError("Login failed", err)
		}
		s.record("login", err)
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)) != nil {
		err := invalidCredentials()
		s.record("login", err)
		return nil, err
	}

	if department := strings.TrimSpace(dto.Department); department != "" && !strings.EqualFold(department, u.Department) {
		err := internal.NewForbiddenError("User does not belong to the selected department", internal.ErrCodeDepartmentMismatch)
		s.record("login", err)
		return nil, err
	}

	result, err := s.issueSession(u, "Login failed")
	if err != nil {
		s.record("login", err)
		return nil, err
	}
	result.Message = "Login successful"
	s.record("login", nil)
	return result, nil
}

// findByIdentifier routes on shape: "@" means email, all digits means employee number.
func (s *Service) findByIdentifier(ctx context.Context, identifier string) (*coreUser.User, error) {
	switch {
	case strings.Contains(identifier, "@"):
		return s.repo.FindByEmail(ctx, identifier)
	case employeeNumberPattern.MatchString(identifier):
		return s.repo.FindByEmployeeNumber(ctx, identifier)
	default:
		return s.repo.FindByUsername(ctx, identifier)
	}
}

func invalidCredentials() error {
	return internal.NewUnauthorizedError("Invalid credentials", internal.ErrCodeInvalidCredentials)
}

func (s *Service) issueSession(u *coreUser.User, failureMessage string) (*AuthResult, error) {
	accessToken, err := s.tokens.IssueAccessToken(u.Username, u.Department)
	if err != nil {
		s.logger.Error("failed to issue access token", "username", u.Username, "error", err)
		return nil, internal.NewInternalError(failureMessage, err)
	}
	s.metrics.RecordTokenIssued("access")

	refreshToken, err := s.tokens.IssueRefreshToken(u.Username)
	if err != nil {
		s.logger.Error("failed to issue refresh token", "username", u.Username, "error", err)
		return nil, internal.NewInternalError(failureMessage, err)
	}
	s.metrics.RecordTokenIssued("refresh")

	return &AuthResult{
		Success:      true,
		User:         toView(u, true),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
	}, nil
}

func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		err := internal.NewValidationFieldError("refreshToken", "Refresh token is required", internal.ErrCodeRequiredField)
		s.record("refresh", err)
		return nil, err
	}

	if !s.tokens.IsRefreshToken(refreshToken) || !s.tokens.Validate(refreshToken) {
		err := internal.NewUnauthorizedError("Invalid or expired refresh token", internal.ErrCodeInvalidToken)
		s.record("refresh", err)
		return nil, err
	}

	username, err := s.tokens.DecodeUsername(refreshToken)
	if err != nil {
		appErr := internal.NewUnauthorizedError("Invalid or expired refresh token", internal.ErrCodeInvalidToken)
		s.record("refresh", appErr)
		return nil, appErr
	}

	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		err = s.lookupError(ctx, err, "Token refresh failed")
		s.record("refresh", err)
		return nil, err
	}

	accessToken, err := s.tokens.IssueAccessToken(u.Username, u.Department)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue access token", "username", u.Username, "error", err)
		appErr := internal.NewInternalError("Token refresh failed", err)
		s.record("refresh", appErr)
		return nil, appErr
	}
	s.metrics.RecordTokenIssued("access")
	s.record("refresh", nil)

	return &RefreshResult{
		Success:     true,
		Message:     "Token refreshed successfully",
		AccessToken: accessToken,
		TokenType:   TokenTypeBearer,
	}, nil
}

func (s *Service) ChangePassword(ctx context.Context, username string, dto ChangePasswordDTO) error {
	if err := validateChangePassword(username, dto); err != nil {
		s.record("change_password", err)
		return err
	}

	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		err = s.lookupError(ctx, err, "Failed to change password")
		s.record("change_password", err)
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.CurrentPassword)) != nil {
		err := internal.NewUnauthorizedError("Current password is incorrect", internal.ErrCodeInvalidCurrentPassword)
		s.record("change_password", err)
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), s.bcryptCost)
	if err != nil {
		appErr := internal.NewInternalError("Failed to change password", err)
		s.record("change_password", appErr)
		return appErr
	}

	if err := s.repo.UpdatePassword(ctx, username, string(hash)); err != nil {
		err = s.lookupError(ctx, err, "Failed to change password")
		s.record("change_password", err)
		return err
	}

	s.publish(ctx, events.NewUserPasswordChangedEvent(username))
	s.record("change_password", nil)
	return nil
}

func (s *Service) UpdateEmail(ctx context.Context, username string, dto UpdateEmailDTO) (*EmailResult, error) {
	dto.Email = strings.TrimSpace(dto.Email)
	if err := validateUpdateEmail(username, dto); err != nil {
		s.record("update_email", err)
		return nil, err
	}

	if _, err := s.repo.FindByUsername(ctx, username); err != nil {
		err = s.lookupError(ctx, err, "Failed to update email")
		s.record("update_email", err)
		return nil, err
	}

	owner, err := s.repo.FindByEmail(ctx, dto.Email)
	switch {
	case err == nil && owner.Username != username:
		conflict := internal.NewConflictError("Email already exists", internal.ErrCodeEmailTaken)
		s.record("update_email", conflict)
		return nil, conflict
	case err != nil && !errors.Is(err, ErrUserNotFound):
		appErr := internal.NewInternalError("Failed to update email", err)
		s.record("update_email", appErr)
		return nil, appErr
	}

	if err := s.repo.UpdateEmail(ctx, username, dto.Email); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			err = internal.NewConflictError("Email already exists", internal.ErrCodeEmailTaken)
		} else {
			err = s.lookupError(ctx, err, "Failed to update email")
		}
		s.record("update_email", err)
		return nil, err
	}

	s.publish(ctx, events.NewUserEmailChangedEvent(username, dto.Email))
	s.record("update_email", nil)
	return &EmailResult{Success: true, Message: "Email updated successfully", Email: dto.Email}, nil
}

func (s *Service) Profile(ctx context.Context, username string) (*UserView, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, s.lookupError(ctx, err, "Failed to load profile")
	}
	view := toView(u, true)
	view.CreatedAt = &u.CreatedAt
	view.UpdatedAt = &u.UpdatedAt
	return &view, nil
}

// ResolvePrincipal loads the account named by a verified token.
func (s *Service) ResolvePrincipal(ctx context.Context, username string) (*internal.Principal, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &internal.Principal{
		UserID:     u.ID,
		Username:   u.Username,
		Department: u.Department,
		RoleID:     u.RoleID,
		RoleName:   u.RoleName,
	}, nil
}

func (s *Service) ParseAccessToken(token string) (*Claims, error) {
	return s.tokens.ParseAccessToken(token)
}

func (s *Service) lookupError(ctx context.Context, err error, failureMessage string) error {
	if errors.Is(err, ErrUserNotFound) {
		return internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound)
	}
	s.logger.ErrorContext(ctx, "credential store failure", "error", err)
	return internal.NewInternalError(failureMessage, err)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func (s *Service) record(operation string, err error) {
	s.metrics.RecordAuthOperation(operation, outcomeOf(err))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case internal.IsType(err, internal.ErrorTypeInternal):
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}

func toView(u *coreUser.User, withPermissions bool) UserView {
	isAdmin := rbac.IsAdmin(u.RoleID)
	view := UserView{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Name:           u.Name,
		Location:       u.Location,
		Department:     u.Department,
		EmployeeNumber: u.EmployeeNumber,
		Role:           roleLabel(u),
		IsAdmin:        isAdmin,
	}
	if withPermissions {
		view.Permissions = PermissionFlags(u.Department, isAdmin)
	}
	return view
}

// roleLabel prefers the stored name and falls back to the fixed id table.
func roleLabel(u *coreUser.User) string {
	if u.RoleName != "" {
		return u.RoleName
	}
	return rbac.RoleNameForID(u.RoleID)
}
