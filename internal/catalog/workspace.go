// Package catalog holds the per-session state of the admin service: the
// authoritative collections of every entity type and their managers.
package catalog

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/theLastOfCats/cinemate-admin/internal/collection"
	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

// seriesTypeNames are the content type names that mark episodic content.
var seriesTypeNames = []string{"tv series", "series", "tv show"}

// IsSeriesType reports whether t is a series kind of content type.
func IsSeriesType(t model.ContentType) bool {
	name := strings.ToLower(strings.TrimSpace(t.Name))
	for _, s := range seriesTypeNames {
		if name == s {
			return true
		}
	}
	return false
}

// RoleIndex resolves a role name against the loaded roles.
type RoleIndex func(name string) (model.Role, bool)

// Stores are the backing stores of a workspace. A nil store keeps that
// collection local.
type Stores struct {
	Users        collection.Store[model.User]
	Roles        collection.Store[model.Role]
	ContentTypes collection.Store[model.ContentType]
	Contents     collection.Store[model.Content]
	Episodes     collection.Store[model.Episode]
	Genres       collection.Store[model.Genre]
	Actors       collection.Store[model.Actor]
	Warnings     collection.Store[model.Warning]
}

type Options struct {
	PageSize int
}

// Workspace owns every collection of one session. All edits go through its
// managers; the lists are never written elsewhere.
type Workspace struct {
	Users        *collection.List[model.User]
	Roles        *collection.List[model.Role]
	ContentTypes *collection.List[model.ContentType]
	Contents     *collection.List[model.Content]
	Episodes     *collection.List[model.Episode]
	Genres       *collection.List[model.Genre]
	Actors       *collection.List[model.Actor]
	Warnings     *collection.List[model.Warning]

	users        *collection.Manager[model.User]
	roles        *collection.Manager[model.Role]
	contentTypes *collection.Manager[model.ContentType]
	contents     *collection.Manager[model.Content]
	episodes     *collection.Manager[model.Episode]
	genres       *collection.Manager[model.Genre]
	actors       *collection.Manager[model.Actor]
	warnings     *collection.Manager[model.Warning]

	// controllers in load order
	controllers []collection.Controller
	cancel      context.CancelFunc
}

// New builds an empty workspace. stores is called once with an index over
// the workspace's roles.
func New(ctx context.Context, stores func(RoleIndex) Stores, opts Options) *Workspace {
	ctx, cancel := context.WithCancel(ctx)
	w := &Workspace{cancel: cancel}

	us, rs := userSchema(), roleSchema()
	ts, gs, as, ws := contentTypeSchema(), genreSchema(), actorSchema(), warningSchema()
	cs, es := w.contentSchema(), w.episodeSchema()

	w.Users = collection.NewList(us)
	w.Roles = collection.NewList(rs)
	w.ContentTypes = collection.NewList(ts)
	w.Contents = collection.NewList(cs)
	w.Episodes = collection.NewList(es)
	w.Genres = collection.NewList(gs)
	w.Actors = collection.NewList(as)
	w.Warnings = collection.NewList(ws)

	var st Stores
	if stores != nil {
		st = stores(w.RoleByName)
	}

	ids := collection.NewIDGenerator()
	mopts := []collection.Option{collection.WithIDGenerator(ids)}
	if opts.PageSize > 0 {
		mopts = append(mopts, collection.WithPageSize(opts.PageSize))
	}

	w.roles = collection.NewManager(ctx, rs, w.Roles, st.Roles, mopts...)
	w.users = collection.NewManager(ctx, us, w.Users, st.Users, mopts...)
	w.contentTypes = collection.NewManager(ctx, ts, w.ContentTypes, st.ContentTypes, mopts...)
	w.contents = collection.NewManager(ctx, cs, w.Contents, st.Contents, mopts...)
	w.episodes = collection.NewManager(ctx, es, w.Episodes, st.Episodes, mopts...)
	w.genres = collection.NewManager(ctx, gs, w.Genres, st.Genres, mopts...)
	w.actors = collection.NewManager(ctx, as, w.Actors, st.Actors, mopts...)
	w.warnings = collection.NewManager(ctx, ws, w.Warnings, st.Warnings, mopts...)

	// Roles come first so user records can be mapped onto them.
	w.controllers = []collection.Controller{
		w.roles.Controller(),
		w.users.Controller(),
		w.contentTypes.Controller(),
		w.contents.Controller(),
		w.episodes.Controller(),
		w.genres.Controller(),
		w.actors.Controller(),
		w.warnings.Controller(),
	}
	return w
}

// Load fetches every collection in dependency order. A failed fetch is
// logged and leaves that collection empty; the others still load.
func (w *Workspace) Load(ctx context.Context) error {
	var errs []error
	for _, c := range w.controllers {
		if err := c.Refresh(ctx); err != nil {
			log.Printf("Catalog: loading %s failed: %v", c.Kind(), err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Controller returns the manager of kind.
func (w *Workspace) Controller(kind string) (collection.Controller, bool) {
	for _, c := range w.controllers {
		if c.Kind() == kind {
			return c, true
		}
	}
	return nil, false
}

// Kinds lists the collection kinds in load order.
func (w *Workspace) Kinds() []string {
	kinds := make([]string, 0, len(w.controllers))
	for _, c := range w.controllers {
		kinds = append(kinds, c.Kind())
	}
	return kinds
}

// Close cancels outstanding requests of every manager.
func (w *Workspace) Close() {
	for _, c := range w.controllers {
		c.Close()
	}
	w.cancel()
}

func (w *Workspace) RoleByName(name string) (model.Role, bool) {
	for _, r := range w.Roles.Snapshot() {
		if r.Name == name {
			return r, true
		}
	}
	return model.Role{}, false
}

func (w *Workspace) contentType(id int64) (model.ContentType, bool) {
	t, _, ok := w.ContentTypes.Find(id)
	return t, ok
}

// SeriesCandidates lists the contents an episode may belong to.
func (w *Workspace) SeriesCandidates() []model.Content {
	var out []model.Content
	for _, c := range w.Contents.Snapshot() {
		if t, ok := w.contentType(c.ContentTypeID); ok && IsSeriesType(t) {
			out = append(out, c)
		}
	}
	return out
}

// checkSeries returns the validation message for an episode parent, or "".
func (w *Workspace) checkSeries(contentID int64) string {
	if contentID == 0 {
		return "Series is required"
	}
	c, _, ok := w.Contents.Find(contentID)
	if !ok {
		return "Unknown series"
	}
	t, ok := w.contentType(c.ContentTypeID)
	if !ok || !IsSeriesType(t) {
		return "Episodes can only belong to a series"
	}
	return ""
}
