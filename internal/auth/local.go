package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/theLastOfCats/cinemate-admin/internal/cinemate"
	"github.com/theLastOfCats/cinemate-admin/internal/db"
)

// LocalAuthenticator checks credentials against the local store, for running
// without a backend.
type LocalAuthenticator struct {
	DB        *db.DB
	AdminRole string
}

func (a *LocalAuthenticator) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	acct, err := a.DB.GetAccount(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, &FlowError{Outcome: LoginFailed}
	}
	if err != nil {
		log.Printf("Auth: account lookup for %s failed: %v", email, err)
		return nil, &FlowError{Outcome: LoginFailed, Err: err}
	}

	ok, err := VerifyPassword(password, acct.PasswordHash)
	if err != nil {
		log.Printf("Auth: stored hash for %s unusable: %v", email, err)
	}
	if !ok {
		return nil, &FlowError{Outcome: LoginFailed}
	}

	user, err := a.DB.GetUser(ctx, acct.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, &FlowError{Outcome: UserRecordMissing}
	}
	if err != nil {
		return nil, &FlowError{Outcome: UserRecordMissing, Err: err}
	}
	user.Password = ""
	if !user.IsActive {
		log.Printf("Auth: login of deactivated user %d refused", user.ID)
		return nil, &FlowError{Outcome: Deactivated}
	}

	role := a.AdminRole
	if role == "" {
		role = DefaultAdminRole
	}
	if !user.HasRole(role) {
		return nil, &FlowError{Outcome: Forbidden, Roles: user.RoleNames()}
	}
	return NewSession(user, cinemate.Tokens{}, time.Now()), nil
}

func (a *LocalAuthenticator) Logout(ctx context.Context, sess *Session) error {
	return nil
}
