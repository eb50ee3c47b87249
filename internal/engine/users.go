package engine

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"asyncops/internal/domain"
	"asyncops/internal/engine/policy"
	"asyncops/internal/repo"
)

// ErrBadCredentials is returned by Authenticate for a wrong email or
// password. Callers must not distinguish the two cases.
var ErrBadCredentials = policy.ForbiddenError{Action: "authenticate"}

type RegisterOptions struct {
	Email    string
	FullName string
	Password string
	Role     string
}

func (e Engine) RegisterUser(ctx context.Context, opts RegisterOptions) (domain.User, error) {
	opts.Email = strings.ToLower(strings.TrimSpace(opts.Email))
	if opts.Email == "" || !strings.Contains(opts.Email, "@") {
		return domain.User{}, policy.ValidationError{Field: "email", Reason: "valid email required"}
	}
	if strings.TrimSpace(opts.FullName) == "" {
		return domain.User{}, policy.ValidationError{Field: "full_name", Reason: "required"}
	}
	if len(opts.Password) < 8 {
		return domain.User{}, policy.ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	if opts.Role == "" {
		opts.Role = domain.RoleMember
	}
	if opts.Role != domain.RoleMember && opts.Role != domain.RoleAdmin {
		return domain.User{}, policy.ValidationError{Field: "role", Reason: "must be member or admin"}
	}
	if _, err := e.Repo.GetUserByEmail(ctx, opts.Email); err == nil {
		return domain.User{}, policy.ValidationError{Field: "email", Reason: "already registered"}
	} else if err != repo.ErrNotFound {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	now := e.nowRFC3339()
	u := domain.User{
		Email:        opts.Email,
		FullName:     strings.TrimSpace(opts.FullName),
		Role:         opts.Role,
		IsActive:     true,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := e.Repo.InsertUser(ctx, u)
	if err != nil {
		return domain.User{}, err
	}
	u.ID = id
	return u, nil
}

// Authenticate checks credentials and returns the matching active user.
func (e Engine) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	u, err := e.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == repo.ErrNotFound {
		return domain.User{}, ErrBadCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return domain.User{}, ErrBadCredentials
	}
	if !u.IsActive {
		return domain.User{}, policy.ForbiddenError{Action: "use a deactivated account"}
	}
	return u, nil
}

func (e Engine) ChangePassword(ctx context.Context, actor policy.Actor, current, next string) error {
	if len(next) < 8 {
		return policy.ValidationError{Field: "new_password", Reason: "must be at least 8 characters"}
	}
	u, err := e.Repo.GetUser(ctx, actor.ID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return policy.ForbiddenError{Action: "change password with wrong current password"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = e.nowRFC3339()
	return e.Repo.UpdateUser(ctx, u)
}

type ProfileUpdateOptions struct {
	FullName *string
	Email    *string
}

// UpdateProfile lets a user edit their own name and email. A changed email
// must not collide with another account.
func (e Engine) UpdateProfile(ctx context.Context, actor policy.Actor, opts ProfileUpdateOptions) (domain.User, error) {
	u, err := e.Repo.GetUser(ctx, actor.ID)
	if err != nil {
		return domain.User{}, err
	}
	if opts.FullName != nil {
		if strings.TrimSpace(*opts.FullName) == "" {
			return domain.User{}, policy.ValidationError{Field: "full_name", Reason: "required"}
		}
		u.FullName = strings.TrimSpace(*opts.FullName)
	}
	if opts.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*opts.Email))
		if email == "" || !strings.Contains(email, "@") {
			return domain.User{}, policy.ValidationError{Field: "email", Reason: "valid email required"}
		}
		if email != u.Email {
			if _, err := e.Repo.GetUserByEmail(ctx, email); err == nil {
				return domain.User{}, policy.ValidationError{Field: "email", Reason: "already registered"}
			} else if err != repo.ErrNotFound {
				return domain.User{}, err
			}
			u.Email = email
		}
	}
	u.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// SetUserActive toggles an account. Admin only.
func (e Engine) SetUserActive(ctx context.Context, actor policy.Actor, userID int64, active bool) (domain.User, error) {
	if !actor.IsAdmin() {
		return domain.User{}, policy.ForbiddenError{Action: "manage users"}
	}
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	u.IsActive = active
	u.UpdatedAt = e.nowRFC3339()
	if err := e.Repo.UpdateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
