package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

// Account is an offline login: an e-mail with its password hash, bound to a
// locally stored user record.
type Account struct {
	Email        string
	PasswordHash string
	UserID       int64
}

func (db *DB) GetAccount(ctx context.Context, email string) (*Account, error) {
	var a Account
	err := db.QueryRowContext(ctx,
		"SELECT email, password_hash, user_id FROM accounts WHERE email = ?", strings.ToLower(email),
	).Scan(&a.Email, &a.PasswordHash, &a.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", ErrNotFound, email)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// PutAccount inserts or replaces the account of a.Email.
func (db *DB) PutAccount(ctx context.Context, tx *sql.Tx, a Account) error {
	query := `INSERT INTO accounts (email, password_hash, user_id, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET password_hash = excluded.password_hash, user_id = excluded.user_id`
	if db.Dialect == DialectMySQL {
		query = `INSERT INTO accounts (email, password_hash, user_id, created_at) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE password_hash = VALUES(password_hash), user_id = VALUES(user_id)`
	}
	var q querier = db.DB
	if tx != nil {
		q = tx
	}
	_, err := q.ExecContext(ctx, query, strings.ToLower(a.Email), a.PasswordHash, a.UserID, time.Now().UnixMilli())
	return err
}

// RebindAccount moves the account of userID to email, keeping its password.
// A user without an account is left alone.
func (db *DB) RebindAccount(ctx context.Context, tx *sql.Tx, userID int64, email string) error {
	var q querier = db.DB
	if tx != nil {
		q = tx
	}
	_, err := q.ExecContext(ctx, "UPDATE accounts SET email = ? WHERE user_id = ?", strings.ToLower(email), userID)
	return err
}

// GetUser reads the locally stored user record behind an account.
func (db *DB) GetUser(ctx context.Context, id int64) (model.User, error) {
	return getRecord[model.User](ctx, db, model.KindUsers, id)
}

// EnsureAdmin makes sure the local store holds the admin role, a user
// record carrying it and an account for email with passwordHash.
func (db *DB) EnsureAdmin(ctx context.Context, email, passwordHash, roleName string) (model.User, error) {
	roles := NewRecordStore(db, model.KindRoles,
		func(r model.Role) int64 { return r.ID },
		func(r model.Role, id int64) model.Role { r.ID = id; return r })
	users := NewRecordStore(db, model.KindUsers,
		func(u model.User) int64 { return u.ID },
		func(u model.User, id int64) model.User { u.ID = id; return u })

	var admin model.User
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := listRecords[model.Role](ctx, tx, model.KindRoles)
		if err != nil {
			return err
		}
		var role model.Role
		for _, r := range existing {
			if r.Name == roleName {
				role = r
				break
			}
		}
		if role.ID == 0 {
			if role, err = roles.CreateTx(ctx, tx, model.Role{Name: roleName}); err != nil {
				return err
			}
			log.Printf("DB: created role %s (%d)", role.Name, role.ID)
		}

		var acct Account
		err = tx.QueryRowContext(ctx,
			"SELECT email, password_hash, user_id FROM accounts WHERE email = ?", strings.ToLower(email),
		).Scan(&acct.Email, &acct.PasswordHash, &acct.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if acct.UserID != 0 {
			admin, err = getRecord[model.User](ctx, tx, model.KindUsers, acct.UserID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}
		switch {
		case admin.ID == 0:
			admin, err = users.CreateTx(ctx, tx, model.User{
				Username: strings.SplitN(email, "@", 2)[0],
				Email:    email,
				IsActive: true,
				Roles:    []model.Role{role},
			})
			if err != nil {
				return err
			}
			log.Printf("DB: created admin user %s (%d)", admin.Email, admin.ID)
		case !admin.HasRole(roleName):
			admin.Roles = append(admin.Roles, role)
			if admin, err = users.UpdateTx(ctx, tx, admin); err != nil {
				return err
			}
		}

		return db.PutAccount(ctx, tx, Account{Email: email, PasswordHash: passwordHash, UserID: admin.ID})
	})
	return admin, err
}
