package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cast"
)

const FakeAccessToken = "fake-access-token"

// Record is a backend entity as JSON sees it.
type Record = map[string]any

// FakeBackend emulates the Cinemate REST surface used by the admin service:
// login/logout, the legacy user directory and role associations, and the
// collection endpoints of every entity type.
type FakeBackend struct {
	*httptest.Server

	mu          sync.Mutex
	passwords   map[string]string
	directory   []Record
	userRoles   []Record
	roles       map[int64]Record
	collections map[string][]Record
	failures    map[string]int
	requests    []string
	nextID      int64
}

// Collection base paths of the fake, matching the client's endpoints.
const (
	PathUsers        = "/api/v1/users"
	PathRoles        = "/api/v1/roles"
	PathGenres       = "/api/v1/genres"
	PathActors       = "/api/v1/actors"
	PathWarnings     = "/api/v1/warnings"
	PathContentTypes = "/api/v1/content-types"
	PathContents     = "/api/v1/admin/contents"
	PathEpisodes     = "/api/v1/admin/episodes"
)

func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		passwords:   make(map[string]string),
		roles:       make(map[int64]Record),
		collections: make(map[string][]Record),
		failures:    make(map[string]int),
		nextID:      1000,
	}
	for _, p := range []string{PathUsers, PathRoles, PathGenres, PathActors, PathWarnings, PathContentTypes, PathContents, PathEpisodes} {
		f.collections[p] = nil
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// AddAccount registers a login and its directory record.
func (f *FakeBackend) AddAccount(id int64, email, username, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords[email] = password
	f.directory = append(f.directory, Record{
		"username": username,
		"email":    email,
		"_links":   Record{"self": Record{"href": f.URL + "/appUsers/" + strconv.FormatInt(id, 10)}},
	})
}

// AddLogin registers credentials without a directory record.
func (f *FakeBackend) AddLogin(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords[email] = password
}

func (f *FakeBackend) AddDirectoryRecord(rec Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directory = append(f.directory, rec)
}

// AddRole registers a role both as a dereferenceable /roles/{id} and as a
// record of the roles collection.
func (f *FakeBackend) AddRole(id int64, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := Record{"id": id, "name": name}
	f.roles[id] = rec
	f.collections[PathRoles] = append(f.collections[PathRoles], rec)
}

// Grant assigns a role to a user through the association listing.
func (f *FakeBackend) Grant(userID, roleID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userRoles = append(f.userRoles, Record{
		"_links": Record{
			"user": Record{"href": f.URL + "/appUsers/" + strconv.FormatInt(userID, 10)},
			"role": Record{"href": f.URL + "/roles/" + strconv.FormatInt(roleID, 10)},
		},
	})
}

func (f *FakeBackend) Seed(base string, records ...Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[base] = append(f.collections[base], records...)
}

func (f *FakeBackend) Records(base string) []Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Record(nil), f.collections[base]...)
}

// Fail makes every request to path answer status.
func (f *FakeBackend) Fail(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = status
}

// Requests returns "METHOD /path" for every request served so far.
func (f *FakeBackend) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *FakeBackend) Saw(methodPath string) bool {
	for _, r := range f.Requests() {
		if r == methodPath {
			return true
		}
	}
	return false
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	if status, ok := f.failures[r.URL.Path]; ok {
		writeJSON(w, status, Record{"message": http.StatusText(status)})
		return
	}

	switch {
	case r.URL.Path == "/api/v1/auth/login":
		user, pass, ok := r.BasicAuth()
		if !ok || f.passwords[user] == "" || f.passwords[user] != pass {
			writeJSON(w, http.StatusUnauthorized, Record{"message": "Bad credentials"})
			return
		}
		writeJSON(w, http.StatusOK, Record{"accessToken": FakeAccessToken, "refreshToken": "refresh-" + user})
		return
	case r.URL.Path == "/api/v1/auth/logout":
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+FakeAccessToken {
		writeJSON(w, http.StatusUnauthorized, Record{"message": "Full authentication is required"})
		return
	}

	switch {
	case r.URL.Path == "/appUsers":
		writeJSON(w, http.StatusOK, Record{"_embedded": Record{"appUsers": f.directory}})
	case r.URL.Path == "/userRoles":
		writeJSON(w, http.StatusOK, Record{"_embedded": Record{"userRoles": f.userRoles}})
	case strings.HasPrefix(r.URL.Path, "/roles/"):
		id := cast.ToInt64(strings.TrimPrefix(r.URL.Path, "/roles/"))
		rec, ok := f.roles[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, Record{"message": "role not found"})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	default:
		f.serveCollection(w, r)
	}
}

func (f *FakeBackend) serveCollection(w http.ResponseWriter, r *http.Request) {
	for base := range f.collections {
		p := r.URL.Path
		switch {
		case r.Method == http.MethodGet && (p == base || p == base+"/all"):
			writeJSON(w, http.StatusOK, Record{"data": f.collections[base]})
			return
		case r.Method == http.MethodPost && (p == base || p == base+"/add"):
			rec, err := decodeRecord(r)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, Record{"message": err.Error()})
				return
			}
			f.nextID++
			rec["id"] = f.nextID
			delete(rec, "encPassword")
			f.collections[base] = append(f.collections[base], rec)
			writeJSON(w, http.StatusCreated, rec)
			return
		case strings.HasPrefix(p, base+"/"):
			id := cast.ToInt64(strings.TrimPrefix(p, base+"/"))
			if id == 0 {
				continue
			}
			f.serveItem(w, r, base, id)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, Record{"message": "no handler for " + r.URL.Path})
}

func (f *FakeBackend) serveItem(w http.ResponseWriter, r *http.Request, base string, id int64) {
	records := f.collections[base]
	idx := -1
	for i, rec := range records {
		if cast.ToInt64(rec["id"]) == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, Record{"message": "not found"})
		return
	}

	switch r.Method {
	case http.MethodPut:
		rec, err := decodeRecord(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Record{"message": err.Error()})
			return
		}
		rec["id"] = id
		delete(rec, "encPassword")
		records[idx] = rec
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		f.collections[base] = append(records[:idx:idx], records[idx+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusOK, records[idx])
	}
}

// decodeRecord reads a JSON body or the JSON part of a multipart body.
func decodeRecord(r *http.Request) (Record, error) {
	var body []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, err
		}
		meta := r.FormValue("metadata")
		if meta == "" {
			meta = r.FormValue("user")
		}
		body = []byte(meta)
	} else {
		var err error
		if body, err = io.ReadAll(r.Body); err != nil {
			return nil, err
		}
	}
	rec := Record{}
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
