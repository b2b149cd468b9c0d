package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"salesdesk/pkg/access"
	"salesdesk/pkg/db/option"
	"salesdesk/pkg/errutil"
	"salesdesk/pkg/repository"
	"salesdesk/pkg/security"
	"salesdesk/services/audit"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

var (
	errDuplicateEmail     = errutil.Conflict("User with this email already exists", nil)
	errUserNotFound       = errutil.NotFound("User not found", nil)
	errInvalidCredentials = errutil.Unauthorized("Invalid email or password", nil)
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	users  repository.Repository[User]
	issuer *security.TokenIssuer
	audit  audit.Recorder
	cost   int
	now    func() time.Time
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Issuer *security.TokenIssuer
	Audit  audit.Recorder
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		users:  repository.ProvideStore[User](p.DB),
		issuer: p.Issuer,
		audit:  p.Audit,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(name, email, password string) error {
	var details []errutil.Detail
	if strings.TrimSpace(name) == "" {
		details = append(details, errutil.Detail{Field: "name", Message: "Name is required"})
	}
	if _, err := mail.ParseAddress(email); err != nil {
		details = append(details, errutil.Detail{Field: "email", Message: "A valid email is required"})
	}
	if len(password) < minPasswordLength {
		details = append(details, errutil.Detail{Field: "password", Message: "Password must be at least 6 characters long"})
	}
	if len(details) > 0 {
		return errutil.ValidationFailed("invalid user", nil, errutil.WithDetails(details...))
	}
	return nil
}

func (s *Service) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *Service) create(ctx context.Context, u *User, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		zap.L().Error("failed to hash password", zap.Error(err))
		return err
	}
	u.PasswordHash = hash

	return s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.users.WithTrx(tx)

		exist, err := repo.FindOne(ctx, &User{Email: u.Email})
		if err != nil {
			return err
		}
		if exist != nil {
			return errDuplicateEmail
		}

		// the first account bootstraps the system
		if u.Role == "" {
			total, err := repo.Count(ctx, nil)
			if err != nil {
				return err
			}
			u.Role = access.RoleAgent
			if total == 0 {
				u.Role = access.RoleAdmin
			}
		}

		if err := repo.Create(ctx, u); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateEmail
			}
			return err
		}
		return nil
	})
}

// Register creates a self-service account. The very first account becomes an
// admin, every later one an agent.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email := normalizeEmail(req.Email)
	if err := validateCredentials(req.Name, email, req.Password); err != nil {
		return nil, err
	}

	u := &User{
		ID:       s.node.Generate(),
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		IsActive: true,
	}
	if err := s.create(ctx, u, req.Password); err != nil {
		if !errors.Is(err, errDuplicateEmail) {
			zap.L().Error("failed to register user", zap.Error(err))
		}
		return nil, err
	}
	return u, nil
}

// Create adds an account on behalf of an admin or manager. Managers may only
// create agents.
func (s *Service) Create(ctx context.Context, by *access.Principal, req CreateUserRequest) (*User, error) {
	email := normalizeEmail(req.Email)
	if err := validateCredentials(req.Name, email, req.Password); err != nil {
		return nil, err
	}
	if req.Role == "" {
		req.Role = access.RoleAgent
	}
	if !req.Role.Valid() {
		return nil, errutil.ValidationFailed("invalid user", nil, errutil.WithDetails(errutil.Detail{Field: "role", Message: "Role must be one of admin, manager, agent"}))
	}
	if by.Role == access.RoleManager && req.Role != access.RoleAgent {
		return nil, errutil.Forbidden("Managers can only create agent accounts", nil)
	}

	creator := by.UserID
	u := &User{
		ID:        s.node.Generate(),
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Role:      req.Role,
		IsActive:  true,
		CreatedBy: &creator,
	}
	if err := s.create(ctx, u, req.Password); err != nil {
		if !errors.Is(err, errDuplicateEmail) {
			zap.L().Error("failed to create user", zap.Error(err))
		}
		return nil, err
	}
	return u, nil
}

// Login checks the password and issues a bearer token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	u, err := s.users.FindOne(ctx, &User{Email: normalizeEmail(req.Email)})
	if err != nil {
		zap.L().Error("failed to load user for login", zap.Error(err))
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	token, expiresAt, err := s.issuer.Sign(u.ID, string(u.Role))
	if err != nil {
		zap.L().Error("failed to sign token", zap.Error(err))
		return nil, err
	}

	now := s.now().UTC()
	u.LastLoginAt = &now
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTrx(tx).Update(ctx, u.ID, map[string]any{"last_login_at": now}); err != nil {
			return err
		}
		s.audit.Record(ctx, tx, audit.Event{
			Action:   audit.ActionUserLogin,
			EntityID: u.ID.String(),
			UserID:   u.ID,
			Details:  map[string]any{"email": u.Email},
		})
		return nil
	}); err != nil {
		zap.L().Warn("failed to record login", zap.Error(err))
	}

	return &TokenResponse{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// Logout only records the event, tokens expire on their own.
func (s *Service) Logout(ctx context.Context, by *access.Principal) {
	s.audit.Record(ctx, nil, audit.Event{
		Action:   audit.ActionUserLogout,
		EntityID: by.UserID.String(),
		UserID:   by.UserID,
	})
}

// LoadPrincipal resolves an active user for the auth middleware.
func (s *Service) LoadPrincipal(ctx context.Context, userID snowflake.ID) (*access.Principal, error) {
	if userID == 0 {
		return nil, nil
	}
	u, err := s.users.FindOne(ctx, &User{ID: userID})
	if err != nil {
		zap.L().Error("failed to load principal", zap.Error(err))
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, nil
	}
	return u.Principal(), nil
}

// TeamMemberIDs lists the active agents a manager created.
func (s *Service) TeamMemberIDs(ctx context.Context, managerID snowflake.ID) ([]snowflake.ID, error) {
	agents, err := s.users.Find(ctx, &User{CreatedBy: &managerID, Role: access.RoleAgent, IsActive: true})
	if err != nil {
		zap.L().Error("failed to list team members", zap.Error(err))
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// ActiveUserIDs returns the subset of ids that belong to active users.
func (s *Service) ActiveUserIDs(ctx context.Context, ids []snowflake.ID) ([]snowflake.ID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}
	users, err := s.users.Find(ctx, &User{IsActive: true},
		option.ApplyOperator(option.Condition{Field: "id", Operator: option.IN, Value: values}))
	if err != nil {
		zap.L().Error("failed to resolve users", zap.Error(err))
		return nil, err
	}
	found := make([]snowflake.ID, 0, len(users))
	for _, u := range users {
		found = append(found, u.ID)
	}
	return found, nil
}

// Stats counts everyone for admins and the users a manager created for
// managers.
func (s *Service) Stats(ctx context.Context, by *access.Principal) (*Stats, error) {
	base := &User{}
	switch by.Role {
	case access.RoleAdmin:
	case access.RoleManager:
		base.CreatedBy = &by.UserID
	default:
		return nil, errutil.Forbidden("Forbidden", nil)
	}

	count := func(q User) (int64, error) {
		n, err := s.users.Count(ctx, &q)
		if err != nil {
			zap.L().Error("failed to count users", zap.Error(err))
		}
		return n, err
	}

	var (
		stats Stats
		err   error
	)
	if stats.TotalUsers, err = count(*base); err != nil {
		return nil, err
	}
	active := *base
	active.IsActive = true
	if stats.ActiveUsers, err = count(active); err != nil {
		return nil, err
	}
	admins := *base
	admins.Role = access.RoleAdmin
	if stats.Admins, err = count(admins); err != nil {
		return nil, err
	}
	return &stats, nil
}

// List returns active users: all of them for admins, the manager and their
// agents for managers.
func (s *Service) List(ctx context.Context, by *access.Principal) ([]*User, error) {
	order := option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"})

	var (
		users []*User
		err   error
	)
	switch by.Role {
	case access.RoleAdmin:
		users, err = s.users.Find(ctx, &User{IsActive: true}, order)
	case access.RoleManager:
		users, err = s.users.Find(ctx, nil, func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).
				Where(db.Session(&gorm.Session{NewDB: true}).
					Where("created_by = ? AND role = ?", by.UserID, access.RoleAgent).
					Or("id = ?", by.UserID))
		}, order)
	default:
		return nil, errutil.Forbidden("Forbidden", nil)
	}
	if err != nil {
		zap.L().Error("failed to list users", zap.Error(err))
		return nil, err
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*User, error) {
	if id == 0 {
		return nil, errUserNotFound
	}
	u, err := s.users.FindOne(ctx, &User{ID: id})
	if err != nil {
		zap.L().Error("failed to get user", zap.Error(err))
		return nil, err
	}
	if u == nil {
		return nil, errUserNotFound
	}
	return u, nil
}

// manages reports whether by may change or remove u.
func manages(by *access.Principal, u *User) bool {
	switch by.Role {
	case access.RoleAdmin:
		return true
	case access.RoleManager:
		return u.Role == access.RoleAgent && u.CreatedBy != nil && *u.CreatedBy == by.UserID
	default:
		return false
	}
}

func (s *Service) Update(ctx context.Context, by *access.Principal, id snowflake.ID, req UpdateUserRequest) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !manages(by, u) {
		return nil, errutil.Forbidden("Forbidden", nil)
	}

	changes := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errutil.ValidationFailed("invalid user", nil, errutil.WithDetails(errutil.Detail{Field: "name", Message: "Name is required"}))
		}
		u.Name = name
		changes["name"] = name
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, errutil.ValidationFailed("invalid user", nil, errutil.WithDetails(errutil.Detail{Field: "role", Message: "Role must be one of admin, manager, agent"}))
		}
		if by.Role == access.RoleManager && *req.Role != access.RoleAgent {
			return nil, errutil.Forbidden("Managers can only manage agent accounts", nil)
		}
		u.Role = *req.Role
		changes["role"] = u.Role
	}
	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			return nil, errutil.ValidationFailed("invalid user", nil, errutil.WithDetails(errutil.Detail{Field: "password", Message: "Password must be at least 6 characters long"}))
		}
		hash, err := s.hash(*req.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
		changes["password_hash"] = hash
	}
	if req.IsActive != nil {
		if id == by.UserID && !*req.IsActive {
			return nil, errutil.BadRequest("Cannot deactivate your own account", nil)
		}
		u.IsActive = *req.IsActive
		changes["is_active"] = u.IsActive
	}

	if len(changes) > 0 {
		if err := s.users.Update(ctx, u.ID, changes); err != nil {
			zap.L().Error("failed to update user", zap.Error(err))
			return nil, err
		}
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, by *access.Principal, id snowflake.ID) error {
	if id == by.UserID {
		return errutil.BadRequest("Cannot delete your own account", nil)
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !manages(by, u) {
		return errutil.Forbidden("Forbidden", nil)
	}
	if _, err := s.users.Delete(ctx, id); err != nil {
		zap.L().Error("failed to delete user", zap.Error(err))
		return err
	}
	return nil
}
