// Package users manages backoffice accounts, admin invitations and
// password reset links.
package users

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mundobebe/backoffice/auth"
	"github.com/mundobebe/backoffice/cache"
	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/logger"
	"github.com/mundobebe/backoffice/middleware"
	"github.com/mundobebe/backoffice/ratelimit"
	"github.com/mundobebe/backoffice/table"
)

const (
	InvitationTTL    = 7 * 24 * time.Hour
	PasswordResetTTL = time.Hour
)

var adminRoles = []core.Role{core.RoleSuperadmin, core.RoleAdmin}

type Deps struct {
	DB       *core.DB
	Cache    *cache.Cache
	Sessions auth.SessionProvider
	Limiter  ratelimit.Store
	Notifier Notifier
	Logger   logger.Logger
}

type Service struct {
	db       *core.DB
	cache    *cache.Cache
	notifier Notifier
	log      logger.Logger
	now      func() time.Time

	createUser       core.Action
	updateUser       core.Action
	deleteUsers      core.Action
	listUsers        core.Action
	countRoles       core.Action
	inviteAdmin      core.Action
	passwordReset    core.Action
	acceptInvitation core.Action
}

func emailOf(input any) string {
	switch in := input.(type) {
	case InviteInput:
		return in.Email
	case PasswordResetInput:
		return in.Email
	}
	return ""
}

func NewService(deps Deps) *Service {
	l := deps.Logger
	if l == nil {
		l = logger.NewSilent()
	}
	n := deps.Notifier
	if n == nil {
		n = LogNotifier{Logger: l}
	}
	s := &Service{db: deps.DB, cache: deps.Cache, notifier: n, log: l, now: time.Now}

	errs := middleware.ErrorHandling(l)
	admin := middleware.RequireSessionOrFail(deps.Sessions, adminRoles...)
	superadmin := middleware.RequireSessionOrFail(deps.Sessions, core.RoleSuperadmin)

	s.createUser = core.Compose(errs, middleware.Validation(createUserSchema, "No se pudo crear el usuario"), admin)(core.Handle(s.doCreateUser))
	s.updateUser = core.Compose(errs, middleware.Validation(updateUserSchema, "No se pudo actualizar el usuario"), admin)(core.Handle(s.doUpdateUser))
	s.deleteUsers = core.Compose(errs, middleware.Validation(deleteUsersSchema, "No se pudieron eliminar los usuarios"), admin)(core.Handle(s.doDeleteUsers))
	s.listUsers = core.Compose(errs, middleware.Validation(table.ParamsSchema, "Parámetros de búsqueda inválidos"), admin)(core.Handle(s.doListUsers))
	s.countRoles = core.Compose(errs, admin)(core.Handle(s.doCountRoles))
	s.inviteAdmin = core.Compose(
		errs,
		middleware.Validation(inviteSchema, "No se pudo enviar la invitación"),
		superadmin,
		middleware.RateLimit(deps.Limiter, middleware.RateLimitOptions{
			Prefix: "invite-admin", Limit: 3, Window: time.Hour, IdentifierFunc: emailOf,
		}),
	)(core.Handle(s.doInviteAdmin))
	s.passwordReset = core.Compose(
		errs,
		middleware.Validation(passwordResetSchema, "No se pudo procesar la solicitud"),
		middleware.RateLimit(deps.Limiter, middleware.RateLimitOptions{
			Prefix: "password-reset", Limit: 3, Window: 15 * time.Minute, IdentifierFunc: emailOf,
		}),
	)(core.Handle(s.doPasswordReset))
	s.acceptInvitation = core.Compose(
		errs,
		middleware.Validation(acceptInvitationSchema, "No se pudo aceptar la invitación"),
		middleware.RateLimit(deps.Limiter, middleware.RateLimitOptions{
			Prefix: "accept-invitation", Limit: 10, Window: 15 * time.Minute,
		}),
	)(core.Handle(s.doAcceptInvitation))
	return s
}

func (s *Service) CreateUser(ctx context.Context, input any) (*User, error) {
	return core.Invoke[*User](ctx, "users.createUser", s.createUser, input)
}

func (s *Service) UpdateUser(ctx context.Context, input any) (*User, error) {
	return core.Invoke[*User](ctx, "users.updateUser", s.updateUser, input)
}

// DeleteUsers deletes accounts. The caller's own account is refused.
func (s *Service) DeleteUsers(ctx context.Context, input any) (int64, error) {
	return core.Invoke[int64](ctx, "users.deleteUsers", s.deleteUsers, input)
}

func (s *Service) GetUsers(ctx context.Context, params any) (*table.Page[User], error) {
	return core.Invoke[*table.Page[User]](ctx, "users.getUsers", s.listUsers, params)
}

func (s *Service) GetUserRoleCounts(ctx context.Context) (RoleCounts, error) {
	return core.Invoke[RoleCounts](ctx, "users.getUserRoleCounts", s.countRoles, struct{}{})
}

// InviteAdmin creates an invited admin account and sends its link.
// Superadmin only; three invitations per email per hour.
func (s *Service) InviteAdmin(ctx context.Context, input any) (*User, error) {
	return core.Invoke[*User](ctx, "users.inviteAdmin", s.inviteAdmin, input)
}

// RequestPasswordReset sends a reset link when the email belongs to an
// account. The result never reveals whether it does.
func (s *Service) RequestPasswordReset(ctx context.Context, input any) error {
	_, err := core.Invoke[struct{}](ctx, "users.requestPasswordReset", s.passwordReset, input)
	return err
}

// AcceptInvitation activates an invited account from its link.
func (s *Service) AcceptInvitation(ctx context.Context, input any) (*User, error) {
	return core.Invoke[*User](ctx, "users.acceptInvitation", s.acceptInvitation, input)
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

func emailConflict(err error) error {
	if errors.Is(err, core.ErrDuplicateKey) {
		return core.Conflict("Ya existe un usuario con ese correo").WithCause(err)
	}
	return err
}

func (s *Service) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	q := s.db.Table("users").WithContext(ctx).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	return q.Exists()
}

func (s *Service) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, TagUsers, TagUserRoleCount)
}

// canAssign reports whether actor may grant role. Only superadmins grant
// superadmin.
func canAssign(actor *core.Session, role core.Role) bool {
	return role != core.RoleSuperadmin || (actor != nil && actor.Role == core.RoleSuperadmin)
}

func (s *Service) doCreateUser(ctx context.Context, in CreateUserInput, actx core.ActionContext) (*User, error) {
	if !canAssign(actx.Session, in.Role) {
		return nil, core.Unauthorized()
	}
	taken, err := s.emailTaken(ctx, in.Email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, core.Conflict("Ya existe un usuario con ese correo")
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	u := &User{ID: id, Name: in.Name, Email: in.Email, Role: in.Role, Status: in.Status}
	if _, err := s.db.Model(u).WithContext(ctx).Insert(u); err != nil {
		return nil, emailConflict(err)
	}
	s.invalidate(ctx)
	return u, nil
}

func (s *Service) doUpdateUser(ctx context.Context, in UpdateUserInput, actx core.ActionContext) (*User, error) {
	var current User
	if err := s.db.Model(&current).WithContext(ctx).Where("id = ?", in.ID).First(&current); err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return nil, core.NotFound("El usuario no existe")
		}
		return nil, err
	}
	if !canAssign(actx.Session, in.Role) || !canAssign(actx.Session, current.Role) {
		return nil, core.Unauthorized()
	}
	if in.Email != current.Email {
		taken, err := s.emailTaken(ctx, in.Email, in.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, core.Conflict("Ya existe un usuario con ese correo")
		}
	}

	current.Name = in.Name
	current.Email = in.Email
	current.Role = in.Role
	if in.Status != "" {
		current.Status = in.Status
	}
	current.UpdatedAt = s.now().UTC()
	n, err := s.db.Table("users").WithContext(ctx).Where("id = ?", in.ID).Update(map[string]any{
		"name":       current.Name,
		"email":      current.Email,
		"role":       string(current.Role),
		"status":     string(current.Status),
		"updated_at": current.UpdatedAt,
	})
	if err != nil {
		return nil, emailConflict(err)
	}
	if n == 0 {
		return nil, core.NotFound("El usuario no existe")
	}
	s.invalidate(ctx)
	return &current, nil
}

func (s *Service) doDeleteUsers(ctx context.Context, in DeleteUsersInput, actx core.ActionContext) (int64, error) {
	if actx.Session != nil && slices.Contains(in.IDs, actx.Session.UserID) {
		return 0, core.Conflict("No puedes eliminar tu propia cuenta")
	}
	var deleted int64
	err := s.db.Transaction(ctx, func(tx *core.Tx) error {
		if actx.Session.Role != core.RoleSuperadmin {
			n, err := tx.Table("users").WithContext(ctx).WhereIn("id", in.IDs).Where("role = ?", string(core.RoleSuperadmin)).Count()
			if err != nil {
				return err
			}
			if n > 0 {
				return core.Unauthorized()
			}
		}
		if _, err := tx.Table("user_tokens").WithContext(ctx).WhereIn("user_id", in.IDs).Delete(); err != nil {
			return err
		}
		n, err := tx.Table("users").WithContext(ctx).WhereIn("id", in.IDs).Delete()
		if err != nil {
			return err
		}
		if n == 0 {
			return core.NotFound("Los usuarios seleccionados no existen")
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	return deleted, nil
}

func (s *Service) doListUsers(ctx context.Context, p table.Params, _ core.ActionContext) (*table.Page[User], error) {
	p = p.Normalize()
	return cache.Read(ctx, s.cache, func(ctx context.Context) (*table.Page[User], error) {
		page, _, err := table.List[User](ctx, s.db, userSpec, p)
		return page, err
	}, []any{"users.list", p}, cache.Options{Tags: []string{TagUsers}})
}

func (s *Service) doCountRoles(ctx context.Context, _ struct{}, _ core.ActionContext) (RoleCounts, error) {
	return cache.Read(ctx, s.cache, func(ctx context.Context) (RoleCounts, error) {
		counts := make(RoleCounts)
		for _, role := range []core.Role{core.RoleSuperadmin, core.RoleAdmin, core.RoleUser} {
			n, err := s.db.Table("users").WithContext(ctx).Where("role = ?", string(role)).Count()
			if err != nil {
				return nil, err
			}
			counts[role] = n
		}
		return counts, nil
	}, []any{"users.roleCounts"}, cache.Options{Tags: []string{TagUserRoleCount}})
}

func (s *Service) issueToken(ctx context.Context, ex interface{ Model(any) *core.Query }, userID string, purpose TokenPurpose, ttl time.Duration) (string, error) {
	tok, err := newID()
	if err != nil {
		return "", err
	}
	t := &Token{Token: tok, UserID: userID, Purpose: purpose, ExpiresAt: s.now().UTC().Add(ttl)}
	if _, err := ex.Model(t).WithContext(ctx).Insert(t); err != nil {
		return "", fmt.Errorf("store %s token: %w", purpose, err)
	}
	return tok, nil
}

func (s *Service) doInviteAdmin(ctx context.Context, in InviteInput, _ core.ActionContext) (*User, error) {
	taken, err := s.emailTaken(ctx, in.Email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, core.Conflict("Ya existe un usuario con ese correo")
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}
	u := &User{ID: id, Email: in.Email, Role: in.Role, Status: StatusInvited}
	err = s.db.Transaction(ctx, func(tx *core.Tx) error {
		if _, err := tx.Model(u).WithContext(ctx).Insert(u); err != nil {
			return emailConflict(err)
		}
		token, err := s.issueToken(ctx, tx, u.ID, PurposeInvite, InvitationTTL)
		if err != nil {
			return err
		}
		// Undelivered invitations roll back so the address can be invited again.
		if err := s.notifier.SendInvitation(ctx, u.Email, u.Role, token); err != nil {
			return fmt.Errorf("send invitation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return u, nil
}

func (s *Service) doPasswordReset(ctx context.Context, in PasswordResetInput, _ core.ActionContext) (struct{}, error) {
	var u User
	err := s.db.Model(&u).WithContext(ctx).Where("email = ?", in.Email).First(&u)
	if errors.Is(err, core.ErrRecordNotFound) {
		s.log.WithFields(map[string]any{"email": in.Email}).Debug("password reset for unknown email")
		return struct{}{}, nil
	}
	if err != nil {
		return struct{}{}, err
	}
	if u.Status == StatusBanned {
		return struct{}{}, nil
	}
	token, err := s.issueToken(ctx, s.db, u.ID, PurposeReset, PasswordResetTTL)
	if err != nil {
		return struct{}{}, err
	}
	if err := s.notifier.SendPasswordReset(ctx, u.Email, token); err != nil {
		return struct{}{}, fmt.Errorf("send password reset: %w", err)
	}
	return struct{}{}, nil
}

// VerifyToken returns the account behind an unused, unexpired token.
func (s *Service) VerifyToken(ctx context.Context, token string, purpose TokenPurpose) (*User, error) {
	var t Token
	err := s.db.Model(&t).WithContext(ctx).
		Where("token = ?", token).
		Where("purpose = ?", string(purpose)).
		Where("used = ?", false).
		First(&t)
	if errors.Is(err, core.ErrRecordNotFound) || (err == nil && !s.now().Before(t.ExpiresAt)) {
		return nil, core.NotFound("El enlace no es válido o ha expirado")
	}
	if err != nil {
		return nil, err
	}
	var u User
	if err := s.db.Model(&u).WithContext(ctx).Where("id = ?", t.UserID).First(&u); err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return nil, core.NotFound("El enlace no es válido o ha expirado")
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) doAcceptInvitation(ctx context.Context, in AcceptInvitationInput, _ core.ActionContext) (*User, error) {
	u, err := s.VerifyToken(ctx, in.Token, PurposeInvite)
	if err != nil {
		return nil, err
	}
	if u.Status != StatusInvited {
		return nil, core.Conflict("La invitación ya fue aceptada")
	}
	u.Name = in.Name
	u.Status = StatusActive
	u.UpdatedAt = s.now().UTC()
	err = s.db.Transaction(ctx, func(tx *core.Tx) error {
		n, err := tx.Table("user_tokens").WithContext(ctx).
			Where("token = ?", in.Token).
			Where("used = ?", false).
			Update(map[string]any{"used": true})
		if err != nil {
			return err
		}
		if n == 0 {
			return core.NotFound("El enlace no es válido o ha expirado")
		}
		_, err = tx.Table("users").WithContext(ctx).Where("id = ?", u.ID).Update(map[string]any{
			"name":       u.Name,
			"status":     string(u.Status),
			"updated_at": u.UpdatedAt,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return u, nil
}
