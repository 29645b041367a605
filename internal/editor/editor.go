// Package editor is the headless state machine behind the visual mapping
// editor. Pointer and keyboard input arrive in screen pixels; the editor keeps
// every mapping in page units and hands persistence to a Queue, applying each
// change locally first.
//
// An Editor is not safe for concurrent use. The Queue worker is the only other
// goroutine, and it never touches editor state.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"LEX-PDFMAP/internal/catalog"
	"LEX-PDFMAP/internal/geometry"
	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/models"
)

type Mode string

const (
	ModeIdle     Mode = "idle"
	ModePlacing  Mode = "placing"
	ModeDragging Mode = "dragging"
	ModeResizing Mode = "resizing"
)

type SyncStatus string

const (
	SyncSynced   SyncStatus = "synced"
	SyncPending  SyncStatus = "pending"
	SyncDiverged SyncStatus = "diverged"
)

type Key string

const (
	KeyUp        Key = "ArrowUp"
	KeyDown      Key = "ArrowDown"
	KeyLeft      Key = "ArrowLeft"
	KeyRight     Key = "ArrowRight"
	KeyDelete    Key = "Delete"
	KeyBackspace Key = "Backspace"
	KeyEscape    Key = "Escape"
)

const (
	// HandleSize is the width in screen pixels of the resize handle along a
	// field's right edge.
	HandleSize = 8.0
	// MinWidth is the smallest width a resize can produce, in page units.
	MinWidth = 20.0

	nudgeStep      = 1.0
	nudgeStepShift = 10.0
)

var (
	ErrNoSelection    = errors.New("no mapping selected")
	ErrNotPlacing     = errors.New("editor is not placing a field")
	ErrPageOutOfRange = errors.New("page out of range")
	ErrQueueClosed    = errors.New("persistence queue is closed")
)

type Options struct {
	Scale float64
	Page  int
	// PageCount bounds SetPage; zero means unknown.
	PageCount   int
	MaxAttempts int
	// Backoff is the first retry pause; zero means DefaultBackoff.
	Backoff time.Duration
	NewID   func() string
}

type Editor struct {
	templateID string
	store      mappings.Store
	queue      *Queue
	newID      func() string

	scale     geometry.Scale
	page      int
	pageCount int

	mode     Mode
	selected string
	mappings []models.FieldMapping
	status   SyncStatus

	anchor      geometry.Point
	pointerFrom geometry.Point
	origin      geometry.Rect
	before      models.FieldMapping
}

// New opens an editor on a template and loads its mappings.
func New(ctx context.Context, templateID string, store mappings.Store, opts Options) (*Editor, error) {
	scale := geometry.Scale(1)
	if opts.Scale != 0 {
		s, err := geometry.NewScale(opts.Scale)
		if err != nil {
			return nil, err
		}
		scale = s
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	backoff := opts.Backoff
	if backoff == 0 {
		backoff = DefaultBackoff
	}

	e := &Editor{
		templateID: templateID,
		store:      store,
		newID:      newID,
		scale:      scale,
		page:       page,
		pageCount:  opts.PageCount,
		mode:       ModeIdle,
		status:     SyncSynced,
	}
	list, err := store.List(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}
	e.mappings = list
	e.queue = NewQueue(store, templateID, opts.MaxAttempts, backoff)
	return e, nil
}

// Close persists what is still queued and stops the queue worker.
func (e *Editor) Close() {
	e.queue.Close()
}

func (e *Editor) Mode() Mode             { return e.mode }
func (e *Editor) Status() SyncStatus     { return e.status }
func (e *Editor) Selected() string       { return e.selected }
func (e *Editor) Scale() geometry.Scale  { return e.scale }
func (e *Editor) Page() int              { return e.page }
func (e *Editor) Queue() *Queue          { return e.queue }
func (e *Editor) TemplateID() string     { return e.templateID }
func (e *Editor) Anchor() geometry.Point { return e.anchor }

// Mappings returns a copy of the in-memory mappings.
func (e *Editor) Mappings() []models.FieldMapping {
	out := make([]models.FieldMapping, len(e.mappings))
	copy(out, e.mappings)
	return out
}

func (e *Editor) index(id string) int {
	for i, m := range e.mappings {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Box is the rectangle a mapping occupies in page units. Unsized mappings
// use the catalog default for their field.
func Box(m models.FieldMapping) geometry.Rect {
	def := catalog.LookupOrText(m.FieldKey).DefaultBox()
	switch m.TypeOrDefault() {
	case models.FieldTypeCheckbox:
		def = geometry.Rect{Width: 12, Height: 12}
	case models.FieldTypeSignature:
		def = geometry.Rect{Width: 180, Height: 50}
	}
	r := geometry.Rect{X: m.XCoordinate, Y: m.YCoordinate, Width: def.Width, Height: def.Height}
	if m.Width != nil {
		r.Width = *m.Width
	}
	if m.Height != nil {
		r.Height = *m.Height
	}
	return r
}

// hitTest returns the index of the topmost mapping on the current page under
// the screen point, or -1. Later mappings are drawn on top.
func (e *Editor) hitTest(screen geometry.Point) int {
	for i := len(e.mappings) - 1; i >= 0; i-- {
		m := e.mappings[i]
		if m.PageNumber != e.page {
			continue
		}
		if geometry.RectToScreen(Box(m), e.scale).Contains(screen) {
			return i
		}
	}
	return -1
}

// PointerDown starts a drag or resize on a field, or starts placing a new
// field on empty space.
func (e *Editor) PointerDown(screen geometry.Point) {
	i := e.hitTest(screen)
	if i < 0 {
		e.selected = ""
		e.mode = ModePlacing
		e.anchor = geometry.ScreenToPage(screen, e.scale)
		return
	}

	m := e.mappings[i]
	e.selected = m.ID
	e.pointerFrom = screen
	e.origin = Box(m)
	e.before = m
	if screen.X >= geometry.RectToScreen(e.origin, e.scale).Right()-HandleSize {
		e.mode = ModeResizing
	} else {
		e.mode = ModeDragging
	}
}

// PointerMove updates the field under drag or resize. Movement is divided by
// the zoom before it touches stored coordinates.
func (e *Editor) PointerMove(screen geometry.Point) {
	if e.mode != ModeDragging && e.mode != ModeResizing {
		return
	}
	i := e.index(e.selected)
	if i < 0 {
		e.mode = ModeIdle
		return
	}

	delta := geometry.ScaleDelta(e.pointerFrom, screen, e.scale)
	m := &e.mappings[i]
	if e.mode == ModeDragging {
		m.XCoordinate = e.origin.X + delta.X
		m.YCoordinate = e.origin.Y + delta.Y
		return
	}
	width := e.origin.Width + delta.X
	if width < MinWidth {
		width = MinWidth
	}
	m.Width = models.Float(width)
}

// PointerUp ends a drag or resize and queues the final geometry.
func (e *Editor) PointerUp() error {
	mode := e.mode
	if mode != ModeDragging && mode != ModeResizing {
		return nil
	}
	e.mode = ModeIdle

	i := e.index(e.selected)
	if i < 0 {
		return nil
	}
	m := e.mappings[i]
	box := Box(m)
	if box == e.origin {
		return nil
	}

	var req mappings.UpdateRequest
	if mode == ModeDragging {
		req.XCoordinate = mappings.Set(m.XCoordinate)
		req.YCoordinate = mappings.Set(m.YCoordinate)
	} else {
		req.Width = mappings.Set(models.Float(box.Width))
	}
	return e.enqueue(Command{Op: OpUpdate, MappingID: m.ID, Update: req})
}

// Place creates a field at the placing anchor, selects it and queues its
// creation.
func (e *Editor) Place(fieldKey string) (models.FieldMapping, error) {
	if e.mode != ModePlacing {
		return models.FieldMapping{}, ErrNotPlacing
	}

	field := catalog.LookupOrText(fieldKey)
	box := field.DefaultBox()
	id := e.newID()
	m := models.FieldMapping{
		ID:          id,
		RequestID:   id,
		TemplateID:  e.templateID,
		FieldKey:    fieldKey,
		PageNumber:  e.page,
		XCoordinate: e.anchor.X,
		YCoordinate: e.anchor.Y,
		Width:       models.Float(box.Width),
		Height:      models.Float(box.Height),
		FieldType:   field.FieldType(),
	}
	if err := mappings.Validate(m); err != nil {
		return models.FieldMapping{}, err
	}

	e.mappings = append(e.mappings, m)
	e.selected = id
	e.mode = ModeIdle
	return m, e.enqueue(Command{Op: OpCreate, MappingID: id, Mapping: m})
}

// CancelPlacing leaves placing mode without creating anything.
func (e *Editor) CancelPlacing() {
	if e.mode == ModePlacing {
		e.mode = ModeIdle
	}
}

func (e *Editor) Select(id string) error {
	i := e.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", mappings.ErrNotFound, id)
	}
	e.selected = id
	e.page = e.mappings[i].PageNumber
	e.mode = ModeIdle
	return nil
}

func (e *Editor) Deselect() {
	e.selected = ""
}

// AssignField changes the field key of the selected mapping.
func (e *Editor) AssignField(fieldKey string) error {
	i := e.index(e.selected)
	if i < 0 {
		return ErrNoSelection
	}
	if fieldKey == "" {
		return fmt.Errorf("%w: field_key is required", mappings.ErrInvalidMapping)
	}
	e.mappings[i].FieldKey = fieldKey
	return e.enqueue(Command{
		Op:        OpUpdate,
		MappingID: e.selected,
		Update:    mappings.UpdateRequest{FieldKey: mappings.Set(fieldKey)},
	})
}

// KeyPress handles nudging, deletion and escape. Nudges are in page units.
func (e *Editor) KeyPress(key Key, shift bool) error {
	switch key {
	case KeyEscape:
		switch e.mode {
		case ModePlacing:
			e.mode = ModeIdle
		case ModeDragging, ModeResizing:
			e.restoreOrigin()
			e.mode = ModeIdle
		default:
			e.selected = ""
		}
		return nil
	case KeyDelete, KeyBackspace:
		return e.deleteSelected()
	case KeyUp, KeyDown, KeyLeft, KeyRight:
		return e.nudge(key, shift)
	default:
		return nil
	}
}

func (e *Editor) nudge(key Key, shift bool) error {
	i := e.index(e.selected)
	if i < 0 {
		return ErrNoSelection
	}
	step := nudgeStep
	if shift {
		step = nudgeStepShift
	}

	m := &e.mappings[i]
	switch key {
	case KeyUp:
		m.YCoordinate -= step
	case KeyDown:
		m.YCoordinate += step
	case KeyLeft:
		m.XCoordinate -= step
	case KeyRight:
		m.XCoordinate += step
	}
	return e.enqueue(Command{
		Op:        OpUpdate,
		MappingID: m.ID,
		Update: mappings.UpdateRequest{
			XCoordinate: mappings.Set(m.XCoordinate),
			YCoordinate: mappings.Set(m.YCoordinate),
		},
	})
}

func (e *Editor) deleteSelected() error {
	i := e.index(e.selected)
	if i < 0 {
		return ErrNoSelection
	}
	id := e.selected
	e.mappings = append(e.mappings[:i], e.mappings[i+1:]...)
	e.selected = ""
	e.mode = ModeIdle
	return e.enqueue(Command{Op: OpDelete, MappingID: id})
}

func (e *Editor) restoreOrigin() {
	i := e.index(e.selected)
	if i < 0 {
		return
	}
	e.mappings[i] = e.before
}

// SetScale changes the zoom. Stored coordinates are unaffected.
func (e *Editor) SetScale(f float64) error {
	s, err := geometry.NewScale(f)
	if err != nil {
		return err
	}
	e.scale = s
	return nil
}

// SetPage switches the visible page and clears the selection.
func (e *Editor) SetPage(page int) error {
	if page < 1 || (e.pageCount > 0 && page > e.pageCount) {
		return fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	e.page = page
	e.selected = ""
	e.mode = ModeIdle
	return nil
}

func (e *Editor) enqueue(cmd Command) error {
	if _, err := e.queue.Enqueue(cmd); err != nil {
		return err
	}
	if e.status != SyncDiverged {
		e.status = SyncPending
	}
	return nil
}

// ProcessAcks drains acknowledgments. A failed write means the local state no
// longer matches the store: the status becomes diverged until Reconcile.
func (e *Editor) ProcessAcks() []Ack {
	acks := e.queue.Acks()
	for _, a := range acks {
		if !a.OK() {
			log.Printf("[editor] template %s: %s %s not persisted: %v", e.templateID, a.Op, a.MappingID, a.Err)
			e.status = SyncDiverged
		}
	}
	if e.status == SyncPending && e.queue.Pending() == 0 {
		e.status = SyncSynced
	}
	return acks
}

// Flush waits for queued writes and processes their acknowledgments.
func (e *Editor) Flush(ctx context.Context) ([]Ack, error) {
	if err := e.queue.Flush(ctx); err != nil {
		return nil, err
	}
	return e.ProcessAcks(), nil
}

// Reconcile waits for queued writes, then replaces the local mappings with
// the store's. A selection that no longer exists is dropped.
func (e *Editor) Reconcile(ctx context.Context) error {
	if _, err := e.Flush(ctx); err != nil {
		return err
	}
	list, err := e.store.List(ctx, e.templateID)
	if err != nil {
		return fmt.Errorf("failed to reload mappings: %w", err)
	}
	e.mappings = list
	if e.index(e.selected) < 0 {
		e.selected = ""
		if e.mode == ModeDragging || e.mode == ModeResizing {
			e.mode = ModeIdle
		}
	}
	e.status = SyncSynced
	return nil
}

// Refresh is the periodic list fetch. It always reconciles.
func (e *Editor) Refresh(ctx context.Context) error {
	return e.Reconcile(ctx)
}
