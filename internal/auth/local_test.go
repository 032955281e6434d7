package auth

import (
	"context"
	"testing"

	"github.com/theLastOfCats/cinemate-admin/internal/db"
	"github.com/theLastOfCats/cinemate-admin/internal/model"
	"github.com/theLastOfCats/cinemate-admin/internal/testutil"
)

func TestLocalAuthenticator(t *testing.T) {
	database := testutil.SetupTestDB(t)
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := database.EnsureAdmin(context.Background(), "admin@local", hash, "ROLE_ADMIN"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	a := &LocalAuthenticator{DB: database, AdminRole: "ROLE_ADMIN"}

	sess, err := a.Authenticate(context.Background(), "admin@local", "secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if sess.User.Email != "admin@local" || !sess.IsAdmin {
		t.Errorf("unexpected session %+v", sess)
	}

	if _, err := a.Authenticate(context.Background(), "admin@local", "wrong"); OutcomeOf(err) != LoginFailed {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := a.Authenticate(context.Background(), "nobody@local", "secret"); OutcomeOf(err) != LoginFailed {
		t.Errorf("unknown account: %v", err)
	}
}

func TestLocalAuthenticatorRequiresAdminRole(t *testing.T) {
	database := testutil.SetupTestDB(t)
	hash, _ := HashPassword("secret")
	if _, err := database.EnsureAdmin(context.Background(), "admin@local", hash, "ROLE_ADMIN"); err != nil {
		t.Fatal(err)
	}

	a := &LocalAuthenticator{DB: database, AdminRole: "ROLE_SUPER"}
	_, err := a.Authenticate(context.Background(), "admin@local", "secret")
	if OutcomeOf(err) != Forbidden {
		t.Errorf("outcome = %v", OutcomeOf(err))
	}
}

func TestLocalAuthenticatorRejectsDeactivatedUser(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	hash, _ := HashPassword("secret")
	admin, err := database.EnsureAdmin(ctx, "admin@local", hash, "ROLE_ADMIN")
	if err != nil {
		t.Fatal(err)
	}

	users := db.NewRecordStore(database, model.KindUsers,
		func(u model.User) int64 { return u.ID },
		func(u model.User, id int64) model.User { u.ID = id; return u })
	admin.IsActive = false
	if _, err := users.Update(ctx, admin); err != nil {
		t.Fatalf("Update: %v", err)
	}

	a := &LocalAuthenticator{DB: database, AdminRole: "ROLE_ADMIN"}
	sess, err := a.Authenticate(ctx, "admin@local", "secret")
	if sess != nil || OutcomeOf(err) != Deactivated {
		t.Fatalf("deactivated admin signed in: sess=%v err=%v", sess, err)
	}
	if msg := flowError(t, err).Message(); msg != "This account has been deactivated." {
		t.Errorf("message = %q", msg)
	}
}
