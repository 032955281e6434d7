package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/theLastOfCats/cinemate-admin/internal/auth"
	"github.com/theLastOfCats/cinemate-admin/internal/cinemate"
	"github.com/theLastOfCats/cinemate-admin/internal/collection"
	"github.com/theLastOfCats/cinemate-admin/internal/db"
	"github.com/theLastOfCats/cinemate-admin/internal/model"
	"github.com/theLastOfCats/cinemate-admin/internal/testutil"
)

// fakeStore records List calls into a shared log.
type fakeStore[T any] struct {
	kind  string
	items []T
	err   error
	log   *[]string
	mu    *sync.Mutex
}

func (s fakeStore[T]) List(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	*s.log = append(*s.log, s.kind)
	s.mu.Unlock()
	return s.items, s.err
}

func (s fakeStore[T]) Create(ctx context.Context, item T) (T, error) { return item, nil }
func (s fakeStore[T]) Update(ctx context.Context, item T) (T, error) { return item, nil }
func (s fakeStore[T]) Delete(ctx context.Context, id int64) error    { return nil }

func seededWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w := New(context.Background(), nil, Options{})
	t.Cleanup(w.Close)
	w.ContentTypes.Reset([]model.ContentType{{ID: 1, Name: "Movie"}, {ID: 2, Name: "TV Series"}})
	w.Contents.Reset([]model.Content{
		{ID: 10, Name: "Dune", ContentTypeID: 1},
		{ID: 11, Name: "Dark", ContentTypeID: 2},
	})
	return w
}

func TestIsSeriesType(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"TV Series", true},
		{"series", true},
		{" tv show ", true},
		{"Movie", false},
		{"Miniseries", false},
	}
	for _, tt := range tests {
		if got := IsSeriesType(model.ContentType{Name: tt.name}); got != tt.want {
			t.Errorf("IsSeriesType(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSeriesCandidates(t *testing.T) {
	w := seededWorkspace(t)
	got := w.SeriesCandidates()
	if len(got) != 1 || got[0].Name != "Dark" {
		t.Errorf("unexpected candidates %+v", got)
	}
}

func TestContentSearchMatchesTypeAndCreatedAt(t *testing.T) {
	w := seededWorkspace(t)
	w.Contents.Reset([]model.Content{
		{ID: 10, Name: "Dune", ContentTypeID: 1, AgeRating: "PG-13", CreatedAt: "2023-11-02"},
		{ID: 11, Name: "Dark", ContentTypeID: 2, AgeRating: "16+", CreatedAt: "2024-05-01"},
	})

	tests := []struct {
		term string
		want []string
	}{
		{"series", []string{"Dark"}},
		{"movie", []string{"Dune"}},
		{"2024-05", []string{"Dark"}},
		{"pg-13", []string{"Dune"}},
		{"", []string{"Dune", "Dark"}},
	}
	for _, tt := range tests {
		w.contents.SetSearchTerm(tt.term)
		var got []string
		for _, row := range w.contents.View().Rows {
			got = append(got, row.Item.Name)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("search %q = %v, want %v", tt.term, got, tt.want)
		}
	}
}

func TestEpisodeSearchMatchesSeriesName(t *testing.T) {
	w := seededWorkspace(t)
	w.Episodes.Reset([]model.Episode{
		{ID: 20, Name: "Secrets", ContentID: 11, SeasonNumber: 1, EpisodeNumber: 1},
		{ID: 21, Name: "Darkness Falls", ContentID: 99, SeasonNumber: 1, EpisodeNumber: 1},
		{ID: 22, Name: "Other", ContentID: 99, SeasonNumber: 1, EpisodeNumber: 2},
	})

	w.episodes.SetSearchTerm("dark")
	page := w.episodes.View()
	if page.Total != 2 || page.Rows[0].Item.ID != 20 || page.Rows[1].Item.ID != 21 {
		t.Errorf("unexpected rows %+v", page.Rows)
	}
}

func TestEpisodeParentMustBeSeries(t *testing.T) {
	w := seededWorkspace(t)
	ctrl, _ := w.Controller(model.KindEpisodes)
	ctrl.StartAdding()

	tests := []struct {
		contentID int64
		want      string
	}{
		{0, "Series is required"},
		{99, "Unknown series"},
		{10, "Episodes can only belong to a series"},
	}
	for _, tt := range tests {
		_, err := w.episodes.Save(context.Background(), model.Episode{Name: "Pilot", SeasonNumber: 1, EpisodeNumber: 1, ContentID: tt.contentID})
		var fe collection.FieldErrors
		if !errors.As(err, &fe) || fe["contentId"] != tt.want {
			t.Errorf("content %d: got %v, want %q", tt.contentID, err, tt.want)
		}
	}

	saved, err := w.episodes.Save(context.Background(), model.Episode{Name: "Pilot", SeasonNumber: 1, EpisodeNumber: 1, ContentID: 11})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if w.Episodes.Len() != 1 || saved.ContentID != 11 {
		t.Errorf("episode not appended: %+v", saved)
	}
}

func TestContentRequiresKnownContentType(t *testing.T) {
	w := seededWorkspace(t)
	w.contents.StartAdding()

	_, err := w.contents.Save(context.Background(), model.Content{Name: "Alien", ContentTypeID: 7})
	var fe collection.FieldErrors
	if !errors.As(err, &fe) || fe["contentTypeId"] != "Unknown content type" {
		t.Fatalf("expected unknown content type, got %v", err)
	}

	long := strings.Repeat("x", 256)
	_, err = w.contents.Save(context.Background(), model.Content{Name: long, ContentTypeID: 1, DurationMin: 1200})
	if !errors.As(err, &fe) || fe["name"] == "" || fe["durationMin"] == "" {
		t.Fatalf("expected name and duration errors, got %v", err)
	}

	if _, err := w.contents.Save(context.Background(), model.Content{Name: "Alien", ContentTypeID: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestContentUploadRules(t *testing.T) {
	w := seededWorkspace(t)
	w.contents.StartAdding()

	item := model.Content{Name: "Alien", ContentTypeID: 1, Files: []model.Upload{
		{Field: model.FieldPoster, ContentType: "video/mp4", Data: []byte("x")},
		{Field: model.FieldAvatar, ContentType: "image/png", Data: []byte("x")},
	}}
	_, err := w.contents.Save(context.Background(), item)
	var fe collection.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected field errors, got %v", err)
	}
	if fe[model.FieldPoster] != "Poster must be of type image/*" {
		t.Errorf("poster error = %q", fe[model.FieldPoster])
	}
	if fe[model.FieldAvatar] == "" {
		t.Error("avatar on content should be rejected")
	}
}

func TestUserValidation(t *testing.T) {
	w := New(context.Background(), nil, Options{})
	t.Cleanup(w.Close)
	ctx := context.Background()

	w.users.StartAdding()
	_, err := w.users.Save(ctx, model.User{Username: "bob", Email: "not-an-email"})
	var fe collection.FieldErrors
	if !errors.As(err, &fe) || fe["email"] == "" || fe["encPassword"] != "Password is required" {
		t.Fatalf("unexpected errors %v", err)
	}

	_, err = w.users.Save(ctx, model.User{Username: "bob", Email: "bob@x.io", Password: "123"})
	if !errors.As(err, &fe) || fe["encPassword"] != "Password must be at least 6 characters" {
		t.Fatalf("unexpected errors %v", err)
	}

	big := make([]byte, MaxAvatarSize+1)
	_, err = w.users.Save(ctx, model.User{Username: "bob", Email: "bob@x.io", Password: "123456",
		Files: []model.Upload{{Field: model.FieldAvatar, ContentType: "image/png", Data: big}}})
	if !errors.As(err, &fe) || fe[model.FieldAvatar] != "Avatar must be at most 5 MB" {
		t.Fatalf("unexpected errors %v", err)
	}

	saved, err := w.users.Save(ctx, model.User{Username: "bob", Email: "bob@x.io", Password: "123456"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// editing does not require the password again
	pos := 0
	if err := w.users.StartEditing(saved, pos); err != nil {
		t.Fatal(err)
	}
	saved.Password = ""
	saved.Firstname = "Bob"
	if _, err := w.users.Save(ctx, saved); err != nil {
		t.Errorf("edit without password failed: %v", err)
	}
}

func TestLoadOrderAndPartialFailure(t *testing.T) {
	var order []string
	var mu sync.Mutex
	stores := func(RoleIndex) Stores {
		return Stores{
			Users:        fakeStore[model.User]{kind: "users", log: &order, mu: &mu, items: []model.User{{ID: 1, Username: "root"}}},
			Roles:        fakeStore[model.Role]{kind: "roles", log: &order, mu: &mu, items: []model.Role{{ID: 1, Name: "ROLE_ADMIN"}}},
			ContentTypes: fakeStore[model.ContentType]{kind: "content-types", log: &order, mu: &mu},
			Contents:     fakeStore[model.Content]{kind: "contents", log: &order, mu: &mu, err: errors.New("boom")},
			Episodes:     fakeStore[model.Episode]{kind: "episodes", log: &order, mu: &mu},
			Genres:       fakeStore[model.Genre]{kind: "genres", log: &order, mu: &mu, items: []model.Genre{{ID: 3, Name: "Drama"}}},
			Actors:       fakeStore[model.Actor]{kind: "actors", log: &order, mu: &mu},
			Warnings:     fakeStore[model.Warning]{kind: "warnings", log: &order, mu: &mu},
		}
	}
	w := New(context.Background(), stores, Options{})
	t.Cleanup(w.Close)

	err := w.Load(context.Background())
	if err == nil {
		t.Fatal("expected the contents failure to be reported")
	}
	want := []string{"roles", "users", "content-types", "contents", "episodes", "genres", "actors", "warnings"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("load order = %v", order)
	}
	if w.Contents.Len() != 0 || w.Genres.Len() != 1 || w.Users.Len() != 1 {
		t.Errorf("unexpected lengths contents=%d genres=%d users=%d", w.Contents.Len(), w.Genres.Len(), w.Users.Len())
	}
	if strings.Join(w.Kinds(), ",") != strings.Join(want, ",") {
		t.Errorf("kinds = %v", w.Kinds())
	}
}

func TestRemoteWorkspaceMapsUserRoles(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.AddRole(1, "ROLE_ADMIN")
	backend.Seed(testutil.PathUsers, testutil.Record{"id": 7, "username": "root", "email": "root@x.io", "roles": []string{"ROLE_ADMIN"}})
	backend.Seed(testutil.PathGenres, testutil.Record{"id": 3, "name": "Drama"})

	client := cinemate.New(backend.URL, backend.Client())
	reg := NewRegistry(RemoteSource(client, 1000), Options{PageSize: 5})
	sess := &auth.Session{ID: "s1", AccessToken: testutil.FakeAccessToken}

	w := reg.Open(context.Background(), sess)
	defer reg.CloseAll()

	users := w.Users.Snapshot()
	if len(users) != 1 || len(users[0].Roles) != 1 || users[0].Roles[0].ID != 1 {
		t.Fatalf("roles not mapped: %+v", users)
	}
	if w.Genres.Len() != 1 {
		t.Errorf("genres = %d", w.Genres.Len())
	}
	if got, ok := reg.Get("s1"); !ok || got != w {
		t.Error("registry lost the workspace")
	}

	ctrl, _ := w.Controller(model.KindGenres)
	ctrl.StartAdding()
	if _, err := ctrl.Save(context.Background(), []byte(`{"name":"Comedy"}`), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(backend.Records(testutil.PathGenres)) != 2 {
		t.Errorf("backend did not receive the genre")
	}

	reg.Close("s1")
	if _, ok := reg.Get("s1"); ok {
		t.Error("closed workspace still registered")
	}
	if err := ctrl.Refresh(context.Background()); err == nil {
		t.Error("refresh after close should fail")
	}
}

func TestLocalUsersKeepPasswordsOutOfRecords(t *testing.T) {
	database := testutil.SetupTestDB(t)
	w := New(context.Background(), func(r RoleIndex) Stores {
		return LocalSource(database)(nil, r)
	}, Options{})
	t.Cleanup(w.Close)
	ctx := context.Background()

	w.users.StartAdding()
	saved, err := w.users.Save(ctx, model.User{Username: "eve", Email: "eve@x.io", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Password != "" {
		t.Error("saved user still carries the password")
	}

	acct, err := database.GetAccount(ctx, "eve@x.io")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if ok, _ := auth.VerifyPassword("hunter22", acct.PasswordHash); !ok || acct.UserID != saved.ID {
		t.Errorf("unexpected account %+v", acct)
	}

	if err := w.users.Remove(ctx, 0); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	stored, err := database.GetUser(ctx, saved.ID)
	if err != nil || stored.IsActive {
		t.Errorf("local delete must deactivate: %+v, %v", stored, err)
	}
	if w.Users.Len() != 1 {
		t.Errorf("soft-deleted user left the list")
	}
}

func TestLocalUserEmailChangeMovesAccount(t *testing.T) {
	database := testutil.SetupTestDB(t)
	w := New(context.Background(), func(r RoleIndex) Stores {
		return LocalSource(database)(nil, r)
	}, Options{})
	t.Cleanup(w.Close)
	ctx := context.Background()

	w.users.StartAdding()
	saved, err := w.users.Save(ctx, model.User{Username: "eve", Email: "eve@x.io", Password: "hunter22", IsActive: true})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := w.users.EditAt(0); err != nil {
		t.Fatal(err)
	}
	saved.Email = "eve@cinemate.io"
	if _, err := w.users.Save(ctx, saved); err != nil {
		t.Fatalf("edit: %v", err)
	}

	if _, err := database.GetAccount(ctx, "eve@x.io"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("old e-mail still signs in: %v", err)
	}
	acct, err := database.GetAccount(ctx, "eve@cinemate.io")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if ok, _ := auth.VerifyPassword("hunter22", acct.PasswordHash); !ok || acct.UserID != saved.ID {
		t.Errorf("account not carried over: %+v", acct)
	}
}
