package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/theLastOfCats/cinemate-admin/internal/auth"
	"github.com/theLastOfCats/cinemate-admin/internal/cinemate"
	"github.com/theLastOfCats/cinemate-admin/internal/db"
	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

// Source builds the stores of one session's workspace.
type Source func(sess *auth.Session, roles RoleIndex) Stores

// RemoteSource talks to the Cinemate backend with the session's access token.
func RemoteSource(c *cinemate.Client, userDirectorySize int) Source {
	return func(sess *auth.Session, roles RoleIndex) Stores {
		authed := c.WithToken(sess.AccessToken)
		return Stores{
			Users:        cinemate.NewUsers(authed, userDirectorySize, cinemate.RoleLookup(roles)),
			Roles:        cinemate.NewRoles(authed),
			ContentTypes: cinemate.NewContentTypes(authed),
			Contents:     cinemate.NewContents(authed),
			Episodes:     cinemate.NewEpisodes(authed),
			Genres:       cinemate.NewGenres(authed),
			Actors:       cinemate.NewActors(authed),
			Warnings:     cinemate.NewWarnings(authed),
		}
	}
}

// LocalSource keeps every collection in the local database. All sessions
// share the same data.
func LocalSource(database *db.DB) Source {
	return func(*auth.Session, RoleIndex) Stores {
		return Stores{
			Users: &localUsers{
				RecordStore: db.NewRecordStore(database, model.KindUsers,
					func(u model.User) int64 { return u.ID },
					func(u model.User, id int64) model.User { u.ID = id; return u }),
				db: database,
			},
			Roles: db.NewRecordStore(database, model.KindRoles,
				func(r model.Role) int64 { return r.ID },
				func(r model.Role, id int64) model.Role { r.ID = id; return r }),
			ContentTypes: db.NewRecordStore(database, model.KindContentTypes,
				func(t model.ContentType) int64 { return t.ID },
				func(t model.ContentType, id int64) model.ContentType { t.ID = id; return t }),
			Contents: db.NewRecordStore(database, model.KindContents,
				func(c model.Content) int64 { return c.ID },
				func(c model.Content, id int64) model.Content { c.ID = id; return c }),
			Episodes: db.NewRecordStore(database, model.KindEpisodes,
				func(e model.Episode) int64 { return e.ID },
				func(e model.Episode, id int64) model.Episode { e.ID = id; return e }),
			Genres: db.NewRecordStore(database, model.KindGenres,
				func(g model.Genre) int64 { return g.ID },
				func(g model.Genre, id int64) model.Genre { g.ID = id; return g }),
			Actors: db.NewRecordStore(database, model.KindActors,
				func(a model.Actor) int64 { return a.ID },
				func(a model.Actor, id int64) model.Actor { a.ID = id; return a }),
			Warnings: db.NewRecordStore(database, model.KindWarnings,
				func(w model.Warning) int64 { return w.ID },
				func(w model.Warning, id int64) model.Warning { w.ID = id; return w }),
		}
	}
}

// localUsers stores passwords as account hashes instead of in the user
// record, and deletes by deactivating.
type localUsers struct {
	*db.RecordStore[model.User]
	db *db.DB
}

func (s *localUsers) Create(ctx context.Context, u model.User) (model.User, error) {
	return s.write(ctx, u, s.CreateTx)
}

func (s *localUsers) Update(ctx context.Context, u model.User) (model.User, error) {
	return s.write(ctx, u, s.UpdateTx)
}

func (s *localUsers) write(ctx context.Context, u model.User, op func(context.Context, *sql.Tx, model.User) (model.User, error)) (model.User, error) {
	password := u.Password
	u.Password = ""
	u.Files = nil

	var saved model.User
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if saved, err = op(ctx, tx, u); err != nil {
			return err
		}
		if err := s.db.RebindAccount(ctx, tx, saved.ID, saved.Email); err != nil {
			return fmt.Errorf("rebind account: %w", err)
		}
		if password == "" {
			return nil
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		return s.db.PutAccount(ctx, tx, db.Account{Email: saved.Email, PasswordHash: hash, UserID: saved.ID})
	})
	return saved, err
}

func (s *localUsers) Delete(ctx context.Context, id int64) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	u.IsActive = false
	_, err = s.RecordStore.Update(ctx, u)
	return err
}
