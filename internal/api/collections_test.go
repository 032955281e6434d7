package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"testing"

	"github.com/theLastOfCats/cinemate-admin/internal/collection"
	"github.com/theLastOfCats/cinemate-admin/internal/model"
	"github.com/theLastOfCats/cinemate-admin/internal/testutil"
)

func decodePage[T any](t *testing.T, rr *httptest.ResponseRecorder) collection.Page[T] {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("list failed: %d %s", rr.Code, rr.Body.String())
	}
	var page collection.Page[T]
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	return page
}

func addGenre(t *testing.T, env *testEnv, token, name string) model.Genre {
	t.Helper()
	if rr := env.do(t, "POST", "/collections/genres/draft", token, nil); rr.Code != http.StatusCreated {
		t.Fatalf("start adding: %d %s", rr.Code, rr.Body.String())
	}
	rr := env.do(t, "PUT", "/collections/genres/draft", token, model.Genre{Name: name})
	if rr.Code != http.StatusOK {
		t.Fatalf("save %s: %d %s", name, rr.Code, rr.Body.String())
	}
	var g model.Genre
	json.Unmarshal(rr.Body.Bytes(), &g)
	return g
}

func TestAddListEditRemove(t *testing.T) {
	env := newLocalEnv(t)
	token := env.login(t, "admin@local", "secret")

	drama := addGenre(t, env, token, "Drama")
	addGenre(t, env, token, "Comedy")
	addGenre(t, env, token, "Documentary")
	if drama.ID == 0 {
		t.Fatal("saved genre has no id")
	}

	page := decodePage[model.Genre](t, env.do(t, "GET", "/collections/genres?search=dr&sort=name&dir=desc", token, nil))
	if page.Total != 1 || page.Rows[0].Item.Name != "Drama" {
		t.Fatalf("search: %+v", page)
	}

	page = decodePage[model.Genre](t, env.do(t, "GET", "/collections/genres?search=&sort=name&dir=asc&size=2&page=2", token, nil))
	if page.Total != 3 || page.TotalPages != 2 || len(page.Rows) != 1 || page.Rows[0].Item.Name != "Drama" {
		t.Fatalf("paging: %+v", page)
	}
	pos := page.Rows[0].Position

	rr := env.do(t, "POST", "/collections/genres/items/"+strconv.Itoa(pos)+"/draft", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("start editing: %d %s", rr.Code, rr.Body.String())
	}
	drama.Name = "Thriller"
	if rr := env.do(t, "PUT", "/collections/genres/draft", token, drama); rr.Code != http.StatusOK {
		t.Fatalf("save edit: %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, "DELETE", "/collections/genres/items/"+strconv.Itoa(pos), token, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("remove: %d %s", rr.Code, rr.Body.String())
	}

	page = decodePage[model.Genre](t, env.do(t, "POST", "/collections/genres/refresh", token, nil))
	if page.Total != 2 {
		t.Errorf("expected 2 genres after delete, got %+v", page)
	}
	for _, row := range page.Rows {
		if row.Item.Name == "Thriller" || row.Item.Name == "Drama" {
			t.Errorf("removed genre still listed: %+v", row)
		}
	}
}

func TestValidationErrors(t *testing.T) {
	env := newLocalEnv(t)
	token := env.login(t, "admin@local", "secret")

	env.do(t, "POST", "/collections/genres/draft", token, nil)
	rr := env.do(t, "PUT", "/collections/genres/draft", token, model.Genre{})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Fields["name"] != "Name is required" {
		t.Errorf("fields = %+v", resp.Fields)
	}

	// the draft stays open after a rejected save
	if rr := env.do(t, "GET", "/collections/genres/draft", token, nil); rr.Code != http.StatusOK {
		t.Errorf("draft closed after validation failure: %d", rr.Code)
	}

	env.do(t, "DELETE", "/collections/genres/draft", token, nil)
	if rr := env.do(t, "PUT", "/collections/genres/draft", token, model.Genre{Name: "X"}); rr.Code != http.StatusConflict {
		t.Errorf("save without draft: %d", rr.Code)
	}
}

func TestCollectionErrors(t *testing.T) {
	env := newLocalEnv(t)
	token := env.login(t, "admin@local", "secret")

	tests := []struct {
		method, path string
		status       int
	}{
		{"GET", "/collections/films", http.StatusNotFound},
		{"GET", "/collections/genres?sort=color", http.StatusBadRequest},
		{"GET", "/collections/genres?page=x", http.StatusBadRequest},
		{"GET", "/collections/genres?sort=name&dir=sideways", http.StatusBadRequest},
		{"POST", "/collections/genres/items/5/draft", http.StatusNotFound},
		{"POST", "/collections/genres/items/abc/draft", http.StatusBadRequest},
		{"DELETE", "/collections/genres/items/0", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rr := env.do(t, tt.method, tt.path, token, nil); rr.Code != tt.status {
			t.Errorf("%s %s: %d, want %d (%s)", tt.method, tt.path, rr.Code, tt.status, rr.Body.String())
		}
	}
}

func TestRemovingUserDeactivates(t *testing.T) {
	env := newLocalEnv(t)
	token := env.login(t, "admin@local", "secret")

	env.do(t, "POST", "/collections/users/draft", token, nil)
	rr := env.do(t, "PUT", "/collections/users/draft", token, model.User{Username: "bob", Email: "bob@x.io", Password: "hunter22", IsActive: true})
	if rr.Code != http.StatusOK {
		t.Fatalf("add user: %d %s", rr.Code, rr.Body.String())
	}

	page := decodePage[model.User](t, env.do(t, "GET", "/collections/users?search=bob", token, nil))
	if page.Total != 1 {
		t.Fatalf("bob not listed: %+v", page)
	}
	pos := page.Rows[0].Position

	if rr := env.do(t, "DELETE", "/collections/users/items/"+strconv.Itoa(pos), token, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("remove user: %d %s", rr.Code, rr.Body.String())
	}
	page = decodePage[model.User](t, env.do(t, "GET", "/collections/users?search=bob", token, nil))
	if page.Total != 1 || page.Rows[0].Item.IsActive {
		t.Errorf("soft delete expected, got %+v", page)
	}

	// a removed user can no longer sign in
	rr = env.do(t, "POST", "/auth/login", "", LoginRequest{Email: "bob@x.io", Password: "hunter22"})
	if rr.Code != http.StatusForbidden {
		t.Errorf("bob login: %d %s", rr.Code, rr.Body.String())
	}
	if msg := decodeError(t, rr).Error; msg != "This account has been deactivated." {
		t.Errorf("bob login message = %q", msg)
	}
}

func TestSeriesCandidatesEndpoint(t *testing.T) {
	env, backend := newRemoteEnv(t)
	backend.Seed(testutil.PathContentTypes,
		testutil.Record{"id": 1, "name": "Movie"},
		testutil.Record{"id": 2, "name": "TV Series"})
	backend.Seed(testutil.PathContents,
		testutil.Record{"id": 10, "name": "Dune", "contentTypeId": 1},
		testutil.Record{"id": 11, "name": "Dark", "contentTypeId": 2})
	token := env.login(t, "admin@cinemate.io", "secret")

	rr := env.do(t, "GET", "/catalog/series", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("series: %d %s", rr.Code, rr.Body.String())
	}
	var series []model.Content
	json.Unmarshal(rr.Body.Bytes(), &series)
	if len(series) != 1 || series[0].Name != "Dark" {
		t.Errorf("unexpected series %+v", series)
	}
}

func TestMultipartContentUpload(t *testing.T) {
	env, backend := newRemoteEnv(t)
	backend.Seed(testutil.PathContentTypes, testutil.Record{"id": 1, "name": "Movie"})
	token := env.login(t, "admin@cinemate.io", "secret")

	env.do(t, "POST", "/collections/contents/draft", token, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("metadata", `{"name":"Dune","contentTypeId":1}`)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="poster"; filename="dune.png"`)
	h.Set("Content-Type", "image/png")
	part, _ := mw.CreatePart(h)
	part.Write([]byte("png-bytes"))
	mw.Close()

	req := httptest.NewRequest("PUT", "/collections/contents/draft", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("multipart save: %d %s", rr.Code, rr.Body.String())
	}
	records := backend.Records(testutil.PathContents)
	if len(records) != 1 || records[0]["name"] != "Dune" {
		t.Errorf("backend records %+v", records)
	}
	if !backend.Saw("POST /api/v1/admin/contents") {
		t.Error("create did not reach the admin endpoint")
	}
}

func TestBackendFailureIsBadGateway(t *testing.T) {
	env, backend := newRemoteEnv(t)
	token := env.login(t, "admin@cinemate.io", "secret")
	backend.Fail(testutil.PathGenres, http.StatusInternalServerError)

	env.do(t, "POST", "/collections/genres/draft", token, nil)
	rr := env.do(t, "PUT", "/collections/genres/draft", token, model.Genre{Name: "Drama"})
	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d %s", rr.Code, rr.Body.String())
	}
	page := decodePage[model.Genre](t, env.do(t, "GET", "/collections/genres", token, nil))
	if page.Total != 0 {
		t.Errorf("failed save changed the list: %+v", page)
	}
}

func TestRepeatedSortKeepsDirection(t *testing.T) {
	env := newLocalEnv(t)
	token := env.login(t, "admin@local", "secret")
	for _, name := range []string{"Drama", "Comedy", "Action"} {
		addGenre(t, env, token, name)
	}

	first := func(path string) string {
		t.Helper()
		page := decodePage[model.Genre](t, env.do(t, "GET", path, token, nil))
		return page.Rows[0].Item.Name
	}

	for i := 0; i < 2; i++ {
		if got := first("/collections/genres?sort=name"); got != "Action" {
			t.Errorf("request %d: first = %q, want Action", i+1, got)
		}
	}
	if got := first("/collections/genres?sort=name&dir=desc"); got != "Drama" {
		t.Errorf("desc: first = %q", got)
	}
	if got := first("/collections/genres?sort=name"); got != "Drama" {
		t.Errorf("sort without dir changed direction: first = %q", got)
	}
}
