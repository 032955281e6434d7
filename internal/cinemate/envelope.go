package cinemate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/spf13/cast"
)

// Link is a hypermedia link of the legacy endpoints.
type Link struct {
	Href string `json:"href"`
}

type Links map[string]Link

func (l Links) Href(rel string) string {
	return l[rel].Href
}

// TrailingID parses the last path segment of href as a numeric id.
func TrailingID(href string) (int64, bool) {
	if href == "" {
		return 0, false
	}
	// Templated links look like /appUsers/7{?projection}.
	if i := strings.IndexByte(href, '{'); i >= 0 {
		href = href[:i]
	}
	u, err := url.Parse(href)
	if err != nil {
		return 0, false
	}
	return parseID(path.Base(strings.TrimRight(u.Path, "/")))
}

// parseID accepts numbers and numeric strings.
func parseID(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return 0, false
	}
	id, err := cast.ToInt64E(v)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// splitList extracts the records of a list response. Accepted shapes are a
// bare array, a paginated {"data": [...]} envelope and an embedded hypermedia
// collection {"_embedded": {"<name>": [...]}}.
func splitList(raw []byte, embedded string) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	var records []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("cinemate: decode list: %w", err)
		}
		return records, nil
	}

	var env struct {
		Data     json.RawMessage            `json:"data"`
		Content  json.RawMessage            `json:"content"`
		Embedded map[string]json.RawMessage `json:"_embedded"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("cinemate: decode envelope: %w", err)
	}

	var list json.RawMessage
	switch {
	case len(env.Data) > 0:
		list = env.Data
	case len(env.Content) > 0:
		list = env.Content
	case env.Embedded != nil:
		list = env.Embedded[embedded]
		if list == nil && len(env.Embedded) == 1 {
			for _, v := range env.Embedded {
				list = v
			}
		}
	}
	if len(list) == 0 || string(list) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(list, &records); err != nil {
		return nil, fmt.Errorf("cinemate: decode list body: %w", err)
	}
	return records, nil
}

// unwrapOne returns the record of a single-entity response, which may be
// wrapped as {"data": {...}}.
func unwrapOne(raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return raw
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(raw, &env) == nil && len(env.Data) > 0 && env.Data[0] == '{' {
		return env.Data
	}
	return raw
}

// selfID reads the id of a hypermedia record from its self link.
func selfID(raw []byte) (int64, bool) {
	var rec struct {
		Links Links `json:"_links"`
	}
	if json.Unmarshal(raw, &rec) != nil {
		return 0, false
	}
	return TrailingID(rec.Links.Href("self"))
}
