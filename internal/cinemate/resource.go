package cinemate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

// Endpoints describes where an entity type lives on the backend.
type Endpoints struct {
	Name     string // embedded collection name of hypermedia listings
	List     string
	Create   string
	Item     string // prefix, the id is appended
	Legacy   string // listing used when List answers 404
	Metadata string // multipart part carrying the JSON record; empty means JSON create
}

// Resource is the remote store of one entity type.
type Resource[T any] struct {
	client *Client
	ep     Endpoints
	id     func(T) int64
	withID func(T, int64) T
	files  func(T) []model.Upload
	decode func([]byte) (T, error)
}

func newResource[T any](c *Client, ep Endpoints, id func(T) int64, withID func(T, int64) T) *Resource[T] {
	return &Resource[T]{
		client: c,
		ep:     ep,
		id:     id,
		withID: withID,
		decode: func(raw []byte) (T, error) {
			var v T
			err := json.Unmarshal(raw, &v)
			return v, err
		},
	}
}

func (r *Resource[T]) Endpoints() Endpoints { return r.ep }

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	body, err := r.client.get(ctx, r.ep.List)
	if err != nil && r.ep.Legacy != "" && IsStatus(err, http.StatusNotFound) {
		log.Printf("Cinemate: %s answered 404, falling back to %s", r.ep.List, r.ep.Legacy)
		body, err = r.client.get(ctx, r.ep.Legacy)
	}
	if err != nil {
		return nil, err
	}

	records, err := splitList(body, r.ep.Name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, raw := range records {
		item, err := r.decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *Resource[T]) decodeRecord(raw []byte) (T, error) {
	item, err := r.decode(raw)
	if err != nil {
		return item, fmt.Errorf("cinemate: decode %s record: %w", r.ep.Name, err)
	}
	if r.id(item) == 0 {
		if id, ok := selfID(raw); ok {
			item = r.withID(item, id)
		}
	}
	return item, nil
}

// decodeEcho decodes the record the backend answered a write with. An empty
// answer or one without an id keeps what was sent.
func (r *Resource[T]) decodeEcho(body []byte, sent T) (T, error) {
	raw := unwrapOne(body)
	if len(bytes.TrimSpace(raw)) == 0 || raw[0] != '{' {
		return sent, nil
	}
	item, err := r.decodeRecord(raw)
	if err != nil {
		return sent, err
	}
	if r.id(item) == 0 {
		item = r.withID(item, r.id(sent))
	}
	return item, nil
}

func (r *Resource[T]) itemPath(id int64) string {
	return r.ep.Item + "/" + strconv.FormatInt(id, 10)
}

func (r *Resource[T]) Create(ctx context.Context, item T) (T, error) {
	var (
		body []byte
		err  error
	)
	if r.ep.Metadata != "" {
		body, err = r.createMultipart(ctx, item)
	} else {
		body, err = r.client.sendJSON(ctx, http.MethodPost, r.ep.Create, item)
	}
	if err != nil {
		return item, err
	}
	return r.decodeEcho(body, item)
}

func (r *Resource[T]) createMultipart(ctx context.Context, item T) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	meta, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, r.ep.Metadata))
	h.Set("Content-Type", "application/json")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(meta); err != nil {
		return nil, err
	}

	if r.files != nil {
		for _, f := range r.files(item) {
			if err := writeFilePart(mw, f); err != nil {
				return nil, err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := r.client.newRequest(ctx, http.MethodPost, r.ep.Create, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return r.client.do(req)
}

func writeFilePart(mw *multipart.Writer, f model.Upload) error {
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, bytes.NewReader(f.Data))
	return err
}

func (r *Resource[T]) Update(ctx context.Context, item T) (T, error) {
	body, err := r.client.sendJSON(ctx, http.MethodPut, r.itemPath(r.id(item)), item)
	if err != nil {
		return item, err
	}
	return r.decodeEcho(body, item)
}

func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	req, err := r.client.newRequest(ctx, http.MethodDelete, r.itemPath(id), nil)
	if err != nil {
		return err
	}
	_, err = r.client.do(req)
	return err
}
