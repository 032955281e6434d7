package cinemate

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

// RoleLookup resolves a role name to the session's cached role.
type RoleLookup func(name string) (model.Role, bool)

func NewUsers(c *Client, size int, roles RoleLookup) *Resource[model.User] {
	list := "/api/v1/users"
	if size > 0 {
		list += "?size=" + strconv.Itoa(size)
	}
	r := newResource(c, Endpoints{
		Name:     "users",
		List:     list,
		Create:   "/api/v1/users/add",
		Item:     "/api/v1/users",
		Metadata: "user",
	},
		func(u model.User) int64 { return u.ID },
		func(u model.User, id int64) model.User { u.ID = id; return u },
	)
	r.files = func(u model.User) []model.Upload { return u.Files }
	r.decode = func(raw []byte) (model.User, error) { return decodeUser(raw, roles) }
	return r
}

// decodeUser accepts roles as objects or as bare names and blanks the
// password of every fetched record.
func decodeUser(raw []byte, roles RoleLookup) (model.User, error) {
	var wire struct {
		model.User
		Roles json.RawMessage `json:"roles"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return model.User{}, err
	}
	u := wire.User
	u.Password = ""
	u.Roles = nil

	rolesRaw := bytes.TrimSpace(wire.Roles)
	if len(rolesRaw) == 0 || string(rolesRaw) == "null" {
		return u, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rolesRaw, &items); err != nil {
		return model.User{}, err
	}
	for _, item := range items {
		var role model.Role
		var name string
		if json.Unmarshal(item, &name) == nil {
			role.Name = name
		} else if err := json.Unmarshal(item, &role); err != nil {
			return model.User{}, err
		}
		if roles != nil {
			if cached, ok := roles(role.Name); ok {
				role = cached
			}
		}
		if role.Name != "" {
			u.Roles = append(u.Roles, role)
		}
	}
	return u, nil
}

func NewRoles(c *Client) *Resource[model.Role] {
	ep := catalogEndpoints("roles")
	ep.List = "/api/v1/roles"
	return newResource(c, ep,
		func(r model.Role) int64 { return r.ID },
		func(r model.Role, id int64) model.Role { r.ID = id; return r },
	)
}

func NewGenres(c *Client) *Resource[model.Genre] {
	return newResource(c, catalogEndpoints("genres"),
		func(g model.Genre) int64 { return g.ID },
		func(g model.Genre, id int64) model.Genre { g.ID = id; return g },
	)
}

func NewActors(c *Client) *Resource[model.Actor] {
	return newResource(c, catalogEndpoints("actors"),
		func(a model.Actor) int64 { return a.ID },
		func(a model.Actor, id int64) model.Actor { a.ID = id; return a },
	)
}

func NewWarnings(c *Client) *Resource[model.Warning] {
	return newResource(c, catalogEndpoints("warnings"),
		func(w model.Warning) int64 { return w.ID },
		func(w model.Warning, id int64) model.Warning { w.ID = id; return w },
	)
}

func NewContentTypes(c *Client) *Resource[model.ContentType] {
	ep := catalogEndpoints("content-types")
	ep.Name = "contentTypes"
	return newResource(c, ep,
		func(t model.ContentType) int64 { return t.ID },
		func(t model.ContentType, id int64) model.ContentType { t.ID = id; return t },
	)
}

func NewContents(c *Client) *Resource[model.Content] {
	r := newResource(c, Endpoints{
		Name:     "contents",
		List:     "/api/v1/admin/contents",
		Create:   "/api/v1/admin/contents",
		Item:     "/api/v1/admin/contents",
		Metadata: "metadata",
	},
		func(ct model.Content) int64 { return ct.ID },
		func(ct model.Content, id int64) model.Content { ct.ID = id; return ct },
	)
	r.files = func(ct model.Content) []model.Upload { return ct.Files }
	return r
}

func NewEpisodes(c *Client) *Resource[model.Episode] {
	r := newResource(c, Endpoints{
		Name:     "episodes",
		List:     "/api/v1/admin/episodes",
		Create:   "/api/v1/admin/episodes",
		Item:     "/api/v1/admin/episodes",
		Legacy:   "/episodes",
		Metadata: "metadata",
	},
		func(e model.Episode) int64 { return e.ID },
		func(e model.Episode, id int64) model.Episode { e.ID = id; return e },
	)
	r.files = func(e model.Episode) []model.Upload { return e.Files }
	return r
}

// catalogEndpoints is the layout of the plain reference entities: an /all
// listing and JSON writes.
func catalogEndpoints(name string) Endpoints {
	base := "/api/v1/" + name
	return Endpoints{
		Name:   name,
		List:   base + "/all",
		Create: base,
		Item:   base,
	}
}
