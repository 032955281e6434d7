package catalog

import (
	"context"
	"log"
	"sync"

	"github.com/theLastOfCats/cinemate-admin/internal/auth"
)

// Registry maps session ids to their workspaces.
type Registry struct {
	source Source
	opts   Options

	mu   sync.Mutex
	open map[string]*Workspace
}

func NewRegistry(source Source, opts Options) *Registry {
	return &Registry{source: source, opts: opts, open: make(map[string]*Workspace)}
}

// Open creates and loads the workspace of sess. Collections that fail to load
// stay empty; the workspace is usable either way.
func (r *Registry) Open(ctx context.Context, sess *auth.Session) *Workspace {
	w := New(context.Background(), func(roles RoleIndex) Stores {
		if r.source == nil {
			return Stores{}
		}
		return r.source(sess, roles)
	}, r.opts)
	if err := w.Load(ctx); err != nil {
		log.Printf("Catalog: workspace of user %d loaded partially: %v", sess.User.ID, err)
	}

	r.mu.Lock()
	old := r.open[sess.ID]
	r.open[sess.ID] = w
	r.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return w
}

func (r *Registry) Get(sessionID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.open[sessionID]
	return w, ok
}

// Acquire returns the open workspace of sess, opening one when the session
// has none yet.
func (r *Registry) Acquire(ctx context.Context, sess *auth.Session) *Workspace {
	if w, ok := r.Get(sess.ID); ok {
		return w
	}
	return r.Open(ctx, sess)
}

// Close drops the workspace of a session and cancels its requests.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	w := r.open[sessionID]
	delete(r.open, sessionID)
	r.mu.Unlock()
	if w != nil {
		w.Close()
	}
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	open := r.open
	r.open = make(map[string]*Workspace)
	r.mu.Unlock()
	for _, w := range open {
		w.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}
