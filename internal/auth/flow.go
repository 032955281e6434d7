package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/theLastOfCats/cinemate-admin/internal/cinemate"
	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

const DefaultAdminRole = "ROLE_ADMIN"

// Outcome is the terminal state of a login attempt.
type Outcome int

const (
	Authenticated Outcome = iota
	LoginFailed
	UserRecordMissing
	IdResolutionFailed
	Forbidden
	// Deactivated is a user record whose active flag was cleared by a removal.
	Deactivated
)

func (o Outcome) String() string {
	switch o {
	case Authenticated:
		return "authenticated"
	case LoginFailed:
		return "login failed"
	case UserRecordMissing:
		return "user record missing"
	case IdResolutionFailed:
		return "id resolution failed"
	case Forbidden:
		return "forbidden"
	case Deactivated:
		return "deactivated"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// FlowError ends a login attempt. Message is the text shown to the user.
type FlowError struct {
	Outcome Outcome
	Reason  string
	Roles   []string
	Err     error
}

func (e *FlowError) Message() string {
	switch e.Outcome {
	case LoginFailed:
		if e.Reason != "" {
			return e.Reason
		}
		return "Invalid credentials."
	case UserRecordMissing:
		return "No user record matches this e-mail address."
	case IdResolutionFailed:
		return "Could not determine the id of your user record."
	case Forbidden:
		held := "none"
		if len(e.Roles) > 0 {
			held = strings.Join(e.Roles, ", ")
		}
		return fmt.Sprintf("Access denied: administrator role required (your roles: %s).", held)
	case Deactivated:
		return "This account has been deactivated."
	}
	return "Login failed."
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %s: %v", e.Outcome, e.Message(), e.Err)
	}
	return fmt.Sprintf("auth: %s: %s", e.Outcome, e.Message())
}

func (e *FlowError) Unwrap() error { return e.Err }

// OutcomeOf classifies err; errors that are not a FlowError count as a
// failed login.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Authenticated
	}
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Outcome
	}
	return LoginFailed
}

// Authenticator runs a login and ends a session.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context, sess *Session) error
}

// BootstrapAdmin grants the admin role to one sentinel account when no roles
// could be resolved for it. Off unless Enabled.
type BootstrapAdmin struct {
	Enabled  bool
	UserID   int64
	Username string
}

func (b BootstrapAdmin) Applies(u model.User) bool {
	if !b.Enabled {
		return false
	}
	return (b.UserID != 0 && u.ID == b.UserID) || (b.Username != "" && u.Username == b.Username)
}

// Resolver authenticates against the Cinemate backend and resolves the
// administrator capability from the user's role assignments.
type Resolver struct {
	Client        *cinemate.Client
	AdminRole     string
	Bootstrap     BootstrapAdmin
	DirectorySize int
}

func (r *Resolver) adminRole() string {
	if r.AdminRole == "" {
		return DefaultAdminRole
	}
	return r.AdminRole
}

func (r *Resolver) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	tokens, err := r.Client.Login(ctx, email, password)
	if err != nil {
		log.Printf("Auth: login for %s rejected: %v", email, err)
		fe := &FlowError{Outcome: LoginFailed, Err: err}
		var apiErr *cinemate.APIError
		if errors.As(err, &apiErr) {
			fe.Reason = apiErr.Message
		}
		return nil, fe
	}

	authed := r.Client.WithToken(tokens.AccessToken)
	users, err := authed.AppUsers(ctx, r.DirectorySize)
	if err != nil {
		log.Printf("Auth: user directory lookup failed: %v", err)
		return nil, &FlowError{Outcome: UserRecordMissing, Err: err}
	}

	var record *cinemate.DirectoryUser
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			record = &users[i]
			break
		}
	}
	if record == nil {
		log.Printf("Auth: no directory record for %s", email)
		return nil, &FlowError{Outcome: UserRecordMissing}
	}

	id, ok := record.ResolveID()
	if !ok {
		log.Printf("Auth: directory record for %s has no usable id", email)
		return nil, &FlowError{Outcome: IdResolutionFailed}
	}

	user := record.User(id)
	if !user.IsActive {
		log.Printf("Auth: login of deactivated user %d refused", id)
		return nil, &FlowError{Outcome: Deactivated}
	}
	user.Roles = r.resolveRoles(ctx, authed, id)
	if len(user.Roles) == 0 && r.Bootstrap.Applies(user) {
		log.Printf("Auth: WARNING bootstrap admin policy granted %s to user %d (%s)", r.adminRole(), user.ID, user.Username)
		user.Roles = []model.Role{{Name: r.adminRole()}}
	}

	if !user.HasRole(r.adminRole()) {
		return nil, &FlowError{Outcome: Forbidden, Roles: user.RoleNames()}
	}
	return NewSession(user, tokens, time.Now()), nil
}

// resolveRoles collects the roles assigned to userID. A failed lookup of the
// association list yields no roles; a failed lookup of one role skips it.
func (r *Resolver) resolveRoles(ctx context.Context, c *cinemate.Client, userID int64) []model.Role {
	entries, err := c.UserRoles(ctx)
	if err != nil {
		log.Printf("Auth: role assignments for user %d unavailable: %v", userID, err)
		return nil
	}

	var roles []model.Role
	seen := make(map[string]bool)
	add := func(role model.Role) {
		if role.Name == "" || seen[role.Name] {
			return
		}
		seen[role.Name] = true
		roles = append(roles, role)
	}

	for _, e := range entries {
		if id, ok := e.UserRef(); !ok || id != userID {
			continue
		}
		if role, ok := e.EmbeddedRole(); ok {
			add(role)
			continue
		}
		path, ok := e.RolePath()
		if !ok {
			log.Printf("Auth: role assignment of user %d has no role reference", userID)
			continue
		}
		role, err := c.Role(ctx, path)
		if err != nil {
			log.Printf("Auth: skipping role %s of user %d: %v", path, userID, err)
			continue
		}
		add(role)
	}
	return roles
}

// Logout revokes the refresh token on the backend. Failures are logged and
// not returned; the caller always drops the session.
func (r *Resolver) Logout(ctx context.Context, sess *Session) error {
	if sess.RefreshToken == "" {
		return nil
	}
	if err := r.Client.WithToken(sess.AccessToken).Logout(ctx, sess.RefreshToken); err != nil {
		log.Printf("Auth: backend logout for user %d failed: %v", sess.User.ID, err)
	}
	return nil
}
