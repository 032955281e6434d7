//go:build integration

package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/theLastOfCats/cinemate-admin/internal/db"
	"github.com/theLastOfCats/cinemate-admin/internal/model"
	"github.com/theLastOfCats/cinemate-admin/internal/testutil"
)

func TestRecordStoreMySQL(t *testing.T) {
	database := testutil.SetupMySQLTestDB(t)
	store := genreStore(database)
	ctx := context.Background()

	if _, err := store.Create(ctx, model.Genre{ID: 3, Name: "Noir"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, model.Genre{ID: 3, Name: "Dup"}); !errors.Is(err, db.ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
	list, err := store.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %+v, %v", list, err)
	}
}

func TestEnsureAdminMySQL(t *testing.T) {
	database := testutil.SetupMySQLTestDB(t)
	ctx := context.Background()

	if _, err := database.EnsureAdmin(ctx, "admin@local", "hash-1", "ROLE_ADMIN"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if _, err := database.EnsureAdmin(ctx, "admin@local", "hash-2", "ROLE_ADMIN"); err != nil {
		t.Fatalf("EnsureAdmin upsert: %v", err)
	}
	acct, err := database.GetAccount(ctx, "admin@local")
	if err != nil || acct.PasswordHash != "hash-2" {
		t.Errorf("account = %+v, %v", acct, err)
	}
}
