package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/theLastOfCats/cinemate-admin/internal/cinemate"
	"github.com/theLastOfCats/cinemate-admin/internal/testutil"
)

func newResolver(t *testing.T) (*Resolver, *testutil.FakeBackend) {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	backend.AddRole(1, "ROLE_ADMIN")
	backend.AddRole(2, "ROLE_USER")
	return &Resolver{
		Client:    cinemate.New(backend.URL, backend.Client()),
		AdminRole: "ROLE_ADMIN",
	}, backend
}

func flowError(t *testing.T, err error) *FlowError {
	t.Helper()
	var fe *FlowError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FlowError, got %v", err)
	}
	return fe
}

func TestAuthenticateAdmin(t *testing.T) {
	r, backend := newResolver(t)
	backend.AddAccount(7, "admin@cinemate.io", "admin", "secret")
	backend.Grant(7, 1)

	sess, err := r.Authenticate(context.Background(), "admin@cinemate.io", "secret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if sess.User.ID != 7 || !sess.IsAdmin || !sess.User.HasRole("ROLE_ADMIN") {
		t.Errorf("unexpected session %+v", sess)
	}
	if sess.AccessToken != testutil.FakeAccessToken || sess.RefreshToken == "" {
		t.Errorf("tokens not kept: %q %q", sess.AccessToken, sess.RefreshToken)
	}
	if sess.ID == "" {
		t.Error("session id is empty")
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	r, backend := newResolver(t)
	backend.AddAccount(7, "admin@cinemate.io", "admin", "secret")

	_, err := r.Authenticate(context.Background(), "admin@cinemate.io", "nope")
	fe := flowError(t, err)
	if fe.Outcome != LoginFailed {
		t.Errorf("outcome = %v", fe.Outcome)
	}
	if fe.Message() != "Bad credentials" {
		t.Errorf("message = %q", fe.Message())
	}
}

func TestAuthenticateWithoutReasonUsesGenericMessage(t *testing.T) {
	fe := &FlowError{Outcome: LoginFailed}
	if fe.Message() != "Invalid credentials." {
		t.Errorf("message = %q", fe.Message())
	}
}

func TestAuthenticateMissingDirectoryRecord(t *testing.T) {
	r, backend := newResolver(t)
	backend.AddLogin("ghost@cinemate.io", "secret")

	_, err := r.Authenticate(context.Background(), "ghost@cinemate.io", "secret")
	if OutcomeOf(err) != UserRecordMissing {
		t.Errorf("outcome = %v (%v)", OutcomeOf(err), err)
	}
}

func TestAuthenticateUnresolvableID(t *testing.T) {
	r, backend := newResolver(t)
	backend.AddLogin("anon@cinemate.io", "secret")
	backend.AddDirectoryRecord(testutil.Record{"email": "anon@cinemate.io", "_links": testutil.Record{}})

	_, err := r.Authenticate(context.Background(), "anon@cinemate.io", "secret")
	if OutcomeOf(err) != IdResolutionFailed {
		t.Errorf("outcome = %v (%v)", OutcomeOf(err), err)
	}
}

func TestAuthenticateRejectsInactiveDirectoryRecord(t *testing.T) {
	r, backend := newResolver(t)
	backend.AddLogin("banned@cinemate.io", "secret")
	backend.AddDirectoryRecord(testutil.Record{"id": 9, "email": "banned@cinemate.io", "isActive": false})
	backend.Grant(9, 1)

	sess, err := r.Authenticate(context.Background(), "banned@cinemate.io", "secret")
	if sess != nil || OutcomeOf(err) != Deactivated {
		t.Errorf("outcome = %v (%v)", OutcomeOf(err), err)
	}
}

func TestAuthenticateNonAdminIsForbidden(t *testing.T) {
	r, backend := newResolver(t)
	backend.AddAccount(8, "viewer@cinemate.io", "viewer", "secret")
	backend.Grant(8, 2)
	backend.Grant(7, 1)

	_, err := r.Authenticate(context.Background(), "viewer@cinemate.io", "secret")
	fe := flowError(t, err)
	if fe.Outcome != Forbidden {
		t.Fatalf("outcome = %v", fe.Outcome)
	}
	want := "Access denied: administrator role required (your roles: ROLE_USER)."
	if fe.Message() != want {
		t.Errorf("message = %q, want %q", fe.Message(), want)
	}
}

func TestAuthenticateSkipsFailingRoleLookups(t *testing.T) {
	r, backend := newResolver(t)
	backend.AddAccount(7, "admin@cinemate.io", "admin", "secret")
	backend.Grant(7, 99)
	backend.Grant(7, 1)

	sess, err := r.Authenticate(context.Background(), "admin@cinemate.io", "secret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if len(sess.User.Roles) != 1 || sess.User.Roles[0].Name != "ROLE_ADMIN" {
		t.Errorf("roles = %+v", sess.User.Roles)
	}
}

func TestBootstrapAdminPolicy(t *testing.T) {
	tests := []struct {
		name      string
		bootstrap BootstrapAdmin
		want      Outcome
	}{
		{"disabled", BootstrapAdmin{UserID: 1, Username: "admin"}, Forbidden},
		{"matches id", BootstrapAdmin{Enabled: true, UserID: 1}, Authenticated},
		{"matches username", BootstrapAdmin{Enabled: true, Username: "root"}, Authenticated},
		{"no match", BootstrapAdmin{Enabled: true, UserID: 2, Username: "other"}, Forbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, backend := newResolver(t)
			backend.AddAccount(1, "root@cinemate.io", "root", "secret")
			r.Bootstrap = tt.bootstrap

			sess, err := r.Authenticate(context.Background(), "root@cinemate.io", "secret")
			if got := OutcomeOf(err); got != tt.want {
				t.Fatalf("outcome = %v, want %v (%v)", got, tt.want, err)
			}
			if tt.want == Forbidden {
				if msg := flowError(t, err).Message(); msg != "Access denied: administrator role required (your roles: none)." {
					t.Errorf("message = %q", msg)
				}
				return
			}
			if !sess.User.HasRole("ROLE_ADMIN") {
				t.Errorf("bootstrap grant missing: %+v", sess.User.Roles)
			}
		})
	}
}

func TestBootstrapDoesNotOverrideResolvedRoles(t *testing.T) {
	r, backend := newResolver(t)
	backend.AddAccount(1, "root@cinemate.io", "root", "secret")
	backend.Grant(1, 2)
	r.Bootstrap = BootstrapAdmin{Enabled: true, UserID: 1}

	_, err := r.Authenticate(context.Background(), "root@cinemate.io", "secret")
	if OutcomeOf(err) != Forbidden {
		t.Errorf("outcome = %v", OutcomeOf(err))
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	r, backend := newResolver(t)
	backend.AddAccount(7, "admin@cinemate.io", "admin", "secret")
	backend.Grant(7, 1)

	sess, err := r.Authenticate(context.Background(), "admin@cinemate.io", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Logout(context.Background(), sess); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !backend.Saw("POST /api/v1/auth/logout") {
		t.Error("backend logout not called")
	}
}

func TestLogoutIgnoresBackendFailure(t *testing.T) {
	r, backend := newResolver(t)
	backend.Fail("/api/v1/auth/logout", 500)

	sess := &Session{ID: "s", AccessToken: "a", RefreshToken: "r"}
	if err := r.Logout(context.Background(), sess); err != nil {
		t.Errorf("Logout should not fail, got %v", err)
	}
}
