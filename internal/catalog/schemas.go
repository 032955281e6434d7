package catalog

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/theLastOfCats/cinemate-admin/internal/collection"
	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

const mb = 1 << 20

// Upload limits of the edit forms.
const (
	MaxAvatarSize  = 5 * mb
	MaxPosterSize  = 10 * mb
	MaxTrailerSize = 100 * mb
	MaxVideoSize   = 500 * mb
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func required(errs collection.FieldErrors, field, label, v string) {
	if strings.TrimSpace(v) == "" {
		errs.Add(field, label+" is required")
	}
}

func maxLen(errs collection.FieldErrors, field, label, v string, n int) {
	if utf8.RuneCountInString(v) > n {
		errs.Add(field, fmt.Sprintf("%s must be at most %d characters", label, n))
	}
}

// checkUploads validates the media attached to a draft against the allowed
// fields, each with a MIME family ("image", "video") and a size limit.
func checkUploads(errs collection.FieldErrors, files []model.Upload, allowed map[string]uploadRule) {
	for _, f := range files {
		rule, ok := allowed[f.Field]
		if !ok {
			errs.Add(f.Field, "This form does not accept a "+f.Field+" file")
			continue
		}
		if !strings.HasPrefix(f.ContentType, rule.family+"/") {
			errs.Add(f.Field, fmt.Sprintf("%s must be of type %s/*", rule.label, rule.family))
		}
		if f.Size() > rule.max {
			errs.Add(f.Field, fmt.Sprintf("%s must be at most %d MB", rule.label, rule.max/mb))
		}
	}
}

type uploadRule struct {
	label  string
	family string
	max    int64
}

// attach replaces uploads field by field.
func attach(existing, files []model.Upload) []model.Upload {
	out := slices.Clone(existing)
	for _, f := range files {
		i := slices.IndexFunc(out, func(u model.Upload) bool { return u.Field == f.Field })
		if i >= 0 {
			out[i] = f
		} else {
			out = append(out, f)
		}
	}
	return out
}

func userSchema() collection.Schema[model.User] {
	uploads := map[string]uploadRule{
		model.FieldAvatar: {"Avatar", "image", MaxAvatarSize},
	}
	return collection.Schema[model.User]{
		Kind:   model.KindUsers,
		ID:     func(u model.User) int64 { return u.ID },
		WithID: func(u model.User, id int64) model.User { u.ID = id; return u },
		New:    func(id int64) model.User { return model.User{ID: id, IsActive: true} },
		Clone:  model.User.Clone,
		SearchFields: func(u model.User) []string {
			return []string{u.Username, u.Firstname, u.Surname, u.Email, u.PhoneNum}
		},
		SortFields: map[string]collection.SortKey[model.User]{
			"id":        collection.Number(func(u model.User) int64 { return u.ID }),
			"username":  collection.Text(func(u model.User) string { return u.Username }),
			"firstname": collection.Text(func(u model.User) string { return u.Firstname }),
			"surname":   collection.Text(func(u model.User) string { return u.Surname }),
			"email":     collection.Text(func(u model.User) string { return u.Email }),
			"createdAt": collection.Text(func(u model.User) string { return u.CreatedAt }),
		},
		Validate: func(u model.User, adding bool) collection.FieldErrors {
			errs := collection.FieldErrors{}
			required(errs, "username", "Username", u.Username)
			required(errs, "email", "Email", u.Email)
			if u.Email != "" && !emailPattern.MatchString(u.Email) {
				errs.Add("email", "Email is not a valid address")
			}
			if adding {
				required(errs, "encPassword", "Password", u.Password)
			}
			if u.Password != "" && utf8.RuneCountInString(u.Password) < 6 {
				errs.Add("encPassword", "Password must be at least 6 characters")
			}
			checkUploads(errs, u.Files, uploads)
			return errs
		},
		Delete:     collection.SoftDelete,
		Deactivate: func(u model.User) model.User { u.IsActive = false; return u },
		Attach: func(u model.User, files []model.Upload) model.User {
			u.Files = attach(u.Files, files)
			return u
		},
	}
}

// named builds the schema shared by the reference entities that only carry
// an id and a name worth validating.
func named[T any](kind string, id func(T) int64, withID func(T, int64) T, name func(T) string, search func(T) []string) collection.Schema[T] {
	return collection.Schema[T]{
		Kind:   kind,
		ID:     id,
		WithID: withID,
		New: func(n int64) T {
			var zero T
			return withID(zero, n)
		},
		SearchFields: search,
		SortFields: map[string]collection.SortKey[T]{
			"id":   collection.Number(id),
			"name": collection.Text(name),
		},
		Validate: func(item T, _ bool) collection.FieldErrors {
			errs := collection.FieldErrors{}
			required(errs, "name", "Name", name(item))
			maxLen(errs, "name", "Name", name(item), 100)
			return errs
		},
	}
}

func roleSchema() collection.Schema[model.Role] {
	return named(model.KindRoles,
		func(r model.Role) int64 { return r.ID },
		func(r model.Role, id int64) model.Role { r.ID = id; return r },
		func(r model.Role) string { return r.Name },
		func(r model.Role) []string { return []string{r.Name} },
	)
}

func warningSchema() collection.Schema[model.Warning] {
	return named(model.KindWarnings,
		func(w model.Warning) int64 { return w.ID },
		func(w model.Warning, id int64) model.Warning { w.ID = id; return w },
		func(w model.Warning) string { return w.Name },
		func(w model.Warning) []string { return []string{w.Name} },
	)
}

func genreSchema() collection.Schema[model.Genre] {
	s := named(model.KindGenres,
		func(g model.Genre) int64 { return g.ID },
		func(g model.Genre, id int64) model.Genre { g.ID = id; return g },
		func(g model.Genre) string { return g.Name },
		func(g model.Genre) []string { return []string{g.Name, g.Description, g.Tags} },
	)
	s.SortFields["tags"] = collection.Text(func(g model.Genre) string { return g.Tags })
	return s
}

func contentTypeSchema() collection.Schema[model.ContentType] {
	s := named(model.KindContentTypes,
		func(t model.ContentType) int64 { return t.ID },
		func(t model.ContentType, id int64) model.ContentType { t.ID = id; return t },
		func(t model.ContentType) string { return t.Name },
		func(t model.ContentType) []string { return []string{t.Name, t.Description, t.Tags} },
	)
	s.SortFields["tags"] = collection.Text(func(t model.ContentType) string { return t.Tags })
	return s
}

func actorSchema() collection.Schema[model.Actor] {
	return collection.Schema[model.Actor]{
		Kind:   model.KindActors,
		ID:     func(a model.Actor) int64 { return a.ID },
		WithID: func(a model.Actor, id int64) model.Actor { a.ID = id; return a },
		New:    func(id int64) model.Actor { return model.Actor{ID: id} },
		SearchFields: func(a model.Actor) []string {
			return []string{a.Name, a.Surname, a.Biography}
		},
		SortFields: map[string]collection.SortKey[model.Actor]{
			"id":      collection.Number(func(a model.Actor) int64 { return a.ID }),
			"name":    collection.Text(func(a model.Actor) string { return a.Name }),
			"surname": collection.Text(func(a model.Actor) string { return a.Surname }),
		},
		Validate: func(a model.Actor, _ bool) collection.FieldErrors {
			errs := collection.FieldErrors{}
			required(errs, "name", "Name", a.Name)
			required(errs, "surname", "Surname", a.Surname)
			return errs
		},
	}
}

func (w *Workspace) contentSchema() collection.Schema[model.Content] {
	uploads := map[string]uploadRule{
		model.FieldPoster:  {"Poster", "image", MaxPosterSize},
		model.FieldTrailer: {"Trailer", "video", MaxTrailerSize},
		model.FieldVideo:   {"Video", "video", MaxVideoSize},
	}
	return collection.Schema[model.Content]{
		Kind:   model.KindContents,
		ID:     func(c model.Content) int64 { return c.ID },
		WithID: func(c model.Content, id int64) model.Content { c.ID = id; return c },
		New:    func(id int64) model.Content { return model.Content{ID: id, IsActive: true} },
		Clone:  model.Content.Clone,
		SearchFields: func(c model.Content) []string {
			t, _ := w.contentType(c.ContentTypeID)
			return []string{c.Name, t.Name, c.AgeRating, c.CreatedAt}
		},
		SortFields: map[string]collection.SortKey[model.Content]{
			"id":          collection.Number(func(c model.Content) int64 { return c.ID }),
			"name":        collection.Text(func(c model.Content) string { return c.Name }),
			"releaseDate": collection.Text(func(c model.Content) string { return c.ReleaseDate }),
			"durationMin": collection.Number(func(c model.Content) int64 { return int64(c.DurationMin) }),
			"contentType": collection.Text(func(c model.Content) string {
				t, _ := w.contentType(c.ContentTypeID)
				return t.Name
			}),
		},
		Validate: func(c model.Content, _ bool) collection.FieldErrors {
			errs := collection.FieldErrors{}
			required(errs, "name", "Name", c.Name)
			maxLen(errs, "name", "Name", c.Name, 255)
			maxLen(errs, "description", "Description", c.Description, 2000)
			if c.DurationMin < 0 || c.DurationMin > 1000 {
				errs.Add("durationMin", "Duration must be between 0 and 1000 minutes")
			}
			if c.ContentTypeID == 0 {
				errs.Add("contentTypeId", "Content type is required")
			} else if _, ok := w.contentType(c.ContentTypeID); !ok {
				errs.Add("contentTypeId", "Unknown content type")
			}
			checkUploads(errs, c.Files, uploads)
			return errs
		},
		Attach: func(c model.Content, files []model.Upload) model.Content {
			c.Files = attach(c.Files, files)
			return c
		},
	}
}

func (w *Workspace) episodeSchema() collection.Schema[model.Episode] {
	uploads := map[string]uploadRule{
		model.FieldTrailer: {"Trailer", "video", MaxTrailerSize},
		model.FieldVideo:   {"Video", "video", MaxVideoSize},
	}
	return collection.Schema[model.Episode]{
		Kind:   model.KindEpisodes,
		ID:     func(e model.Episode) int64 { return e.ID },
		WithID: func(e model.Episode, id int64) model.Episode { e.ID = id; return e },
		New: func(id int64) model.Episode {
			return model.Episode{ID: id, SeasonNumber: 1, EpisodeNumber: 1}
		},
		Clone: model.Episode.Clone,
		// episodes match on their own name or their series' name
		SearchFields: func(e model.Episode) []string {
			c, _, _ := w.Contents.Find(e.ContentID)
			return []string{e.Name, c.Name}
		},
		SortFields: map[string]collection.SortKey[model.Episode]{
			"id":            collection.Number(func(e model.Episode) int64 { return e.ID }),
			"name":          collection.Text(func(e model.Episode) string { return e.Name }),
			"seasonNumber":  collection.Number(func(e model.Episode) int64 { return int64(e.SeasonNumber) }),
			"episodeNumber": collection.Number(func(e model.Episode) int64 { return int64(e.EpisodeNumber) }),
			"releaseDate":   collection.Text(func(e model.Episode) string { return e.ReleaseDate }),
			"series": collection.Text(func(e model.Episode) string {
				c, _, _ := w.Contents.Find(e.ContentID)
				return c.Name
			}),
		},
		Validate: func(e model.Episode, _ bool) collection.FieldErrors {
			errs := collection.FieldErrors{}
			required(errs, "name", "Name", e.Name)
			if e.SeasonNumber < 1 {
				errs.Add("seasonNumber", "Season number must be at least 1")
			}
			if e.EpisodeNumber < 1 {
				errs.Add("episodeNumber", "Episode number must be at least 1")
			}
			if e.DurationMin < 0 {
				errs.Add("durationMin", "Duration cannot be negative")
			}
			if msg := w.checkSeries(e.ContentID); msg != "" {
				errs.Add("contentId", msg)
			}
			checkUploads(errs, e.Files, uploads)
			return errs
		},
		Attach: func(e model.Episode, files []model.Upload) model.Episode {
			e.Files = attach(e.Files, files)
			return e
		},
	}
}
