package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/theLastOfCats/cinemate-admin/internal/catalog"
	"github.com/theLastOfCats/cinemate-admin/internal/collection"
	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = catalog.MaxVideoSize + catalog.MaxTrailerSize + catalog.MaxPosterSize + maxJSONBody
	// parts beyond this are spooled to disk by the multipart reader
	multipartMemory = 32 << 20
)

type CollectionHandler struct {
	Workspaces *catalog.Registry
}

func (h *CollectionHandler) workspace(r *http.Request) (*catalog.Workspace, bool) {
	sess, ok := GetSession(r)
	if !ok {
		return nil, false
	}
	return h.Workspaces.Acquire(r.Context(), sess), true
}

func (h *CollectionHandler) controller(w http.ResponseWriter, r *http.Request) (collection.Controller, bool) {
	ws, ok := h.workspace(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	kind := r.PathValue("kind")
	ctrl, ok := ws.Controller(kind)
	if !ok {
		JSONError(w, fmt.Sprintf("Unknown collection %q", kind), http.StatusNotFound)
		return nil, false
	}
	return ctrl, true
}

// List applies the query parameters to the collection's view state, then
// returns the derived page.
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	if q.Has("search") {
		ctrl.SetSearchTerm(q.Get("search"))
	}
	if field := q.Get("sort"); field != "" {
		var err error
		if d := q.Get("dir"); d != "" {
			dir, ok := collection.ParseDirection(d)
			if !ok {
				JSONError(w, "dir must be asc or desc", http.StatusBadRequest)
				return
			}
			err = ctrl.SortBy(field, dir)
		} else if ctrl.Query().Sort != field {
			// without dir, repeating the current field keeps its direction
			err = ctrl.SetSort(field)
		}
		if err != nil {
			writeError(w, err)
			return
		}
	}
	if s := q.Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			JSONError(w, "size must be a positive integer", http.StatusBadRequest)
			return
		}
		ctrl.SetPageSize(n)
	}
	if p := q.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			JSONError(w, "page must be an integer", http.StatusBadRequest)
			return
		}
		ctrl.SetPage(n)
	}

	writeJSON(w, http.StatusOK, ctrl.View())
}

func (h *CollectionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := ctrl.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.View())
}

func (h *CollectionHandler) StartAdding(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, ctrl.StartAdding())
}

func (h *CollectionHandler) StartEditing(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	pos, err := strconv.Atoi(r.PathValue("pos"))
	if err != nil {
		JSONError(w, "Invalid position", http.StatusBadRequest)
		return
	}
	draft, err := ctrl.EditAt(pos)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *CollectionHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	draft, open := ctrl.Draft()
	if !open {
		JSONError(w, "No draft is open", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *CollectionHandler) CancelDraft(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	ctrl.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// SaveDraft submits the open draft. The body is the entity as JSON, or a
// multipart form with the entity in a "metadata" part next to file parts
// named after their form field (avatar, poster, trailer, video).
func (h *CollectionHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var body []byte
	var files []model.Upload
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		body, files, err = readMultipart(w, r)
	} else {
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			JSONError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		JSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := ctrl.Save(r.Context(), body, files)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func readMultipart(w http.ResponseWriter, r *http.Request) ([]byte, []model.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, err
	}
	defer r.MultipartForm.RemoveAll()

	meta := r.FormValue("metadata")
	if meta == "" {
		return nil, nil, errors.New("missing metadata part")
	}

	var files []model.Upload
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return nil, nil, err
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, nil, err
			}
			files = append(files, model.Upload{
				Field:       field,
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}
	return []byte(meta), files, nil
}

func (h *CollectionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	pos, err := strconv.Atoi(r.PathValue("pos"))
	if err != nil {
		JSONError(w, "Invalid position", http.StatusBadRequest)
		return
	}
	if err := ctrl.Remove(r.Context(), pos); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Series lists the contents an episode may be attached to.
func (h *CollectionHandler) Series(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	series := ws.SeriesCandidates()
	if series == nil {
		series = []model.Content{}
	}
	writeJSON(w, http.StatusOK, series)
}
