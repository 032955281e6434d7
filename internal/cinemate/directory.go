package cinemate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

// DirectoryUser is a record of the legacy /appUsers listing.
type DirectoryUser struct {
	ID        any    `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	PhoneNum  string `json:"phoneNum"`
	Avatar    string `json:"avatar"`
	IsActive  *bool  `json:"isActive"`
	Links     Links  `json:"_links"`
}

// ResolveID returns the numeric id of the record, taken from its id field or
// from the trailing segment of its self link.
func (u DirectoryUser) ResolveID() (int64, bool) {
	if id, ok := parseID(u.ID); ok {
		return id, true
	}
	return TrailingID(u.Links.Href("self"))
}

func (u DirectoryUser) User(id int64) model.User {
	active := true
	if u.IsActive != nil {
		active = *u.IsActive
	}
	return model.User{
		ID:        id,
		Username:  u.Username,
		Firstname: u.Firstname,
		Surname:   u.Surname,
		Email:     u.Email,
		PhoneNum:  u.PhoneNum,
		Avatar:    u.Avatar,
		IsActive:  active,
	}
}

type ref struct {
	ID   any    `json:"id"`
	Name string `json:"name"`
}

// UserRole is an entry of the legacy /userRoles association listing.
type UserRole struct {
	ID        any   `json:"id"`
	UserID    any   `json:"userId"`
	UserIDAlt any   `json:"user_id"`
	RoleID    any   `json:"roleId"`
	RoleIDAlt any   `json:"role_id"`
	User      *ref  `json:"user"`
	Role      *ref  `json:"role"`
	Links     Links `json:"_links"`
}

// UserRef returns the id of the user the association points at.
func (e UserRole) UserRef() (int64, bool) {
	for _, v := range []any{e.UserID, e.UserIDAlt} {
		if id, ok := parseID(v); ok {
			return id, true
		}
	}
	if e.User != nil {
		if id, ok := parseID(e.User.ID); ok {
			return id, true
		}
	}
	for _, rel := range []string{"user", "appUser"} {
		if id, ok := TrailingID(e.Links.Href(rel)); ok {
			return id, true
		}
	}
	return 0, false
}

// EmbeddedRole returns the role when the entry carries it inline with a name.
func (e UserRole) EmbeddedRole() (model.Role, bool) {
	if e.Role == nil || e.Role.Name == "" {
		return model.Role{}, false
	}
	id, _ := parseID(e.Role.ID)
	return model.Role{ID: id, Name: e.Role.Name}, true
}

// RolePath returns the path or link to dereference the associated role.
func (e UserRole) RolePath() (string, bool) {
	for _, v := range []any{e.RoleID, e.RoleIDAlt} {
		if id, ok := parseID(v); ok {
			return "/roles/" + strconv.FormatInt(id, 10), true
		}
	}
	if e.Role != nil {
		if id, ok := parseID(e.Role.ID); ok {
			return "/roles/" + strconv.FormatInt(id, 10), true
		}
	}
	if href := e.Links.Href("role"); href != "" {
		return href, true
	}
	return "", false
}

// AppUsers fetches the legacy user directory.
func (c *Client) AppUsers(ctx context.Context, size int) ([]DirectoryUser, error) {
	path := "/appUsers"
	if size > 0 {
		path += "?size=" + strconv.Itoa(size)
	}
	return getList[DirectoryUser](ctx, c, path, "appUsers")
}

// UserRoles fetches the legacy user-role associations.
func (c *Client) UserRoles(ctx context.Context) ([]UserRole, error) {
	return getList[UserRole](ctx, c, "/userRoles", "userRoles")
}

// Role dereferences a single role by path or hypermedia link.
func (c *Client) Role(ctx context.Context, path string) (model.Role, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return model.Role{}, err
	}
	raw := unwrapOne(body)
	var rec struct {
		ID   any    `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.Role{}, fmt.Errorf("cinemate: decode role: %w", err)
	}
	id, ok := parseID(rec.ID)
	if !ok {
		id, _ = selfID(raw)
	}
	return model.Role{ID: id, Name: rec.Name}, nil
}

func getList[T any](ctx context.Context, c *Client, path, embedded string) ([]T, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	records, err := splitList(body, embedded)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, raw := range records {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("cinemate: decode %s record: %w", embedded, err)
		}
		out = append(out, v)
	}
	return out, nil
}
