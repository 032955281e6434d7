package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

const DefaultPageSize = 10

// Store is the remote (or local) persistence behind a collection.
type Store[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, item T) (T, error)
	Delete(ctx context.Context, id int64) error
}

// Owner is the write contract of the authoritative list handed to a manager.
type Owner[T any] interface {
	Snapshot() []T
	Append(item T) error
	Replace(pos int, item T) error
	RemoveAt(pos int, id int64) error
	Reset(items []T)
}

type editor[T any] struct {
	draft    T
	editing  bool
	position int
}

type settings struct {
	pageSize int
	ids      *IDGenerator
}

type Option func(*settings)

func WithPageSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithIDGenerator shares one temporary id source between managers.
func WithIDGenerator(g *IDGenerator) Option {
	return func(s *settings) { s.ids = g }
}

// Manager owns the view state of one collection and mediates writes between a
// presentation layer, the authoritative list and an optional store.
//
// Writes wait for the store to confirm before the list changes. A nil store
// makes the collection purely local.
type Manager[T any] struct {
	schema Schema[T]
	owner  Owner[T]
	store  Store[T]
	ids    *IDGenerator

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	editor     *editor[T]
	query      Query
	refreshGen uint64
}

// NewManager binds a manager to owner and store for the lifetime of ctx. It
// panics if the schema is incomplete.
func NewManager[T any](ctx context.Context, schema Schema[T], owner Owner[T], store Store[T], opts ...Option) *Manager[T] {
	if err := schema.Check(); err != nil {
		panic(err)
	}
	s := settings{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&s)
	}
	if s.ids == nil {
		s.ids = NewIDGenerator()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Manager[T]{
		schema: schema,
		owner:  owner,
		store:  store,
		ids:    s.ids,
		ctx:    ctx,
		cancel: cancel,
		query:  Query{Direction: Asc, Page: 1, Size: s.pageSize},
	}
}

func (m *Manager[T]) Kind() string { return m.schema.Kind }

// Close cancels outstanding requests. Completions arriving afterwards are
// discarded.
func (m *Manager[T]) Close() { m.cancel() }

// bind ties a request context to the manager lifetime.
func (m *Manager[T]) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// StartAdding opens the editor on a fresh draft with a temporary id.
func (m *Manager[T]) StartAdding() T {
	draft := m.schema.New(m.ids.Next())
	m.mu.Lock()
	m.editor = &editor[T]{draft: draft}
	m.mu.Unlock()
	return m.schema.clone(draft)
}

// StartEditing opens the editor on a copy of item, remembering pos for the
// write-back. item must be the entity at pos.
func (m *Manager[T]) StartEditing(item T, pos int) error {
	items := m.owner.Snapshot()
	if pos < 0 || pos >= len(items) {
		return ErrOutOfRange
	}
	if m.schema.ID(items[pos]) != m.schema.ID(item) {
		return ErrStalePosition
	}
	m.mu.Lock()
	m.editor = &editor[T]{draft: m.schema.clone(item), editing: true, position: pos}
	m.mu.Unlock()
	return nil
}

// EditAt opens the editor on the entity currently at pos.
func (m *Manager[T]) EditAt(pos int) (T, error) {
	var zero T
	items := m.owner.Snapshot()
	if pos < 0 || pos >= len(items) {
		return zero, ErrOutOfRange
	}
	if err := m.StartEditing(items[pos], pos); err != nil {
		return zero, err
	}
	return items[pos], nil
}

// Draft returns the draft being edited and whether it edits an existing entity.
func (m *Manager[T]) Draft() (draft T, editing, open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editor == nil {
		return draft, false, false
	}
	return m.schema.clone(m.editor.draft), m.editor.editing, true
}

func (m *Manager[T]) Cancel() {
	m.mu.Lock()
	m.editor = nil
	m.mu.Unlock()
}

// Save commits item through the open editor: it replaces the entity at the
// recorded position when editing, and appends it when adding. Validation
// errors and store failures leave the list untouched and the editor open.
func (m *Manager[T]) Save(ctx context.Context, item T) (T, error) {
	var zero T
	m.mu.Lock()
	ed := m.editor
	m.mu.Unlock()
	if ed == nil {
		return zero, ErrNoDraft
	}

	item = m.schema.WithID(item, m.schema.ID(ed.draft))
	if m.schema.Validate != nil {
		if errs := m.schema.Validate(item, !ed.editing); len(errs) > 0 {
			return zero, errs
		}
	}

	ctx, done := m.bind(ctx)
	defer done()

	saved := item
	if m.store != nil {
		var err error
		if ed.editing {
			saved, err = m.store.Update(ctx, item)
		} else {
			saved, err = m.store.Create(ctx, item)
		}
		if err != nil {
			log.Printf("Collection %s: save of %d failed: %v", m.schema.Kind, m.schema.ID(item), err)
			return zero, fmt.Errorf("save %s: %w", m.schema.Kind, err)
		}
	}
	if m.ctx.Err() != nil {
		return zero, ErrClosed
	}

	var err error
	if ed.editing {
		err = m.owner.Replace(ed.position, saved)
	} else {
		err = m.owner.Append(saved)
		for m.store == nil && errors.Is(err, ErrDuplicateID) {
			saved = m.schema.WithID(saved, m.ids.Next())
			err = m.owner.Append(saved)
		}
	}
	if err != nil {
		return zero, err
	}

	m.mu.Lock()
	if m.editor == ed {
		m.editor = nil
	}
	m.mu.Unlock()
	return saved, nil
}

// Remove deletes the entity at pos according to the schema's delete policy.
// Remote deletes are keyed by id.
func (m *Manager[T]) Remove(ctx context.Context, pos int) error {
	items := m.owner.Snapshot()
	if pos < 0 || pos >= len(items) {
		return ErrOutOfRange
	}
	item := items[pos]
	id := m.schema.ID(item)

	ctx, done := m.bind(ctx)
	defer done()

	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			log.Printf("Collection %s: delete of %d failed: %v", m.schema.Kind, id, err)
			return fmt.Errorf("delete %s %d: %w", m.schema.Kind, id, err)
		}
	}
	if m.ctx.Err() != nil {
		return ErrClosed
	}

	if m.schema.Delete == SoftDelete {
		return m.owner.Replace(pos, m.schema.Deactivate(item))
	}
	return m.owner.RemoveAt(pos, id)
}

// Refresh replaces the list with the store's contents. When refreshes
// overlap only the most recent one is applied.
func (m *Manager[T]) Refresh(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	m.mu.Lock()
	m.refreshGen++
	gen := m.refreshGen
	m.mu.Unlock()

	ctx, done := m.bind(ctx)
	defer done()

	items, err := m.store.List(ctx)
	if err != nil {
		log.Printf("Collection %s: refresh failed: %v", m.schema.Kind, err)
		return fmt.Errorf("list %s: %w", m.schema.Kind, err)
	}
	if m.ctx.Err() != nil {
		return ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.refreshGen {
		return nil
	}
	m.owner.Reset(items)
	return nil
}

// SetSearchTerm changes the filter and goes back to the first page.
func (m *Manager[T]) SetSearchTerm(text string) {
	m.mu.Lock()
	m.query.Search = text
	m.query.Page = 1
	m.mu.Unlock()
}

// SetSort selects field ascending, or flips the direction when field is
// already selected.
func (m *Manager[T]) SetSort(field string) error {
	if _, ok := m.schema.SortFields[field]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.query.Sort == field {
		m.query.Direction = m.query.Direction.flip()
		return nil
	}
	m.query.Sort = field
	m.query.Direction = Asc
	return nil
}

func (m *Manager[T]) SortBy(field string, dir Direction) error {
	if _, ok := m.schema.SortFields[field]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	m.mu.Lock()
	m.query.Sort = field
	m.query.Direction = dir
	m.mu.Unlock()
	return nil
}

// SetPage moves to page n, clamped to the pages of the current view.
func (m *Manager[T]) SetPage(n int) {
	m.mu.Lock()
	q := m.query
	m.mu.Unlock()

	count := len(Filter(rowsOf(m.owner.Snapshot()), q.Search, m.schema.SearchFields))
	n = clampPage(n, TotalPages(count, q.Size))

	m.mu.Lock()
	m.query.Page = n
	m.mu.Unlock()
}

// SetPageSize changes the page size and goes back to the first page.
func (m *Manager[T]) SetPageSize(n int) {
	m.mu.Lock()
	m.query.Size = max(1, n)
	m.query.Page = 1
	m.mu.Unlock()
}

func (m *Manager[T]) Query() Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query
}

// View derives the current page from the authoritative list.
func (m *Manager[T]) View() Page[T] {
	return Derive(m.owner.Snapshot(), m.schema, m.Query())
}

// Controller exposes the manager to callers that only speak JSON.
func (m *Manager[T]) Controller() Controller {
	return controller[T]{m}
}

// Controller is the type-erased face of a Manager.
type Controller interface {
	Kind() string
	View() any
	StartAdding() any
	EditAt(pos int) (any, error)
	Draft() (any, bool)
	Cancel()
	Save(ctx context.Context, body []byte, files []model.Upload) (any, error)
	Remove(ctx context.Context, pos int) error
	SetSearchTerm(text string)
	SetSort(field string) error
	SortBy(field string, dir Direction) error
	SetPage(n int)
	SetPageSize(n int)
	Query() Query
	Refresh(ctx context.Context) error
	Close()
}

type controller[T any] struct {
	*Manager[T]
}

func (c controller[T]) View() any { return c.Manager.View() }

func (c controller[T]) StartAdding() any { return c.Manager.StartAdding() }

func (c controller[T]) EditAt(pos int) (any, error) {
	item, err := c.Manager.EditAt(pos)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (c controller[T]) Draft() (any, bool) {
	draft, _, open := c.Manager.Draft()
	if !open {
		return nil, false
	}
	return draft, true
}

func (c controller[T]) Save(ctx context.Context, body []byte, files []model.Upload) (any, error) {
	var item T
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.schema.Kind, err)
	}
	if len(files) > 0 && c.schema.Attach != nil {
		item = c.schema.Attach(item, files)
	}
	saved, err := c.Manager.Save(ctx, item)
	if err != nil {
		return nil, err
	}
	return saved, nil
}
