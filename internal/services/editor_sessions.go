package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"LEX-PDFMAP/internal/editor"
	"LEX-PDFMAP/internal/geometry"
	"LEX-PDFMAP/internal/mappings"
)

var (
	ErrSessionNotFound = errors.New("editor session not found")
	ErrInvalidEvent    = errors.New("invalid editor event")
)

const DefaultSessionTTL = 30 * time.Minute

type EventType string

const (
	EventPointerDown EventType = "pointer_down"
	EventPointerMove EventType = "pointer_move"
	EventPointerUp   EventType = "pointer_up"
	EventPlace       EventType = "place"
	EventCancel      EventType = "cancel"
	EventKey         EventType = "key"
	EventSelect      EventType = "select"
	EventDeselect    EventType = "deselect"
	EventAssign      EventType = "assign"
	EventScale       EventType = "scale"
	EventPage        EventType = "page"
	EventFlush       EventType = "flush"
)

// EditorEvent is one input to a remote editor. Screen coordinates are in
// pixels at the session's current scale.
type EditorEvent struct {
	Type      EventType `json:"type"`
	X         float64   `json:"x,omitempty"`
	Y         float64   `json:"y,omitempty"`
	FieldKey  string    `json:"field_key,omitempty"`
	Key       string    `json:"key,omitempty"`
	Shift     bool      `json:"shift,omitempty"`
	MappingID string    `json:"mapping_id,omitempty"`
	Scale     float64   `json:"scale,omitempty"`
	Page      int       `json:"page,omitempty"`
}

type AckView struct {
	Seq       uint64    `json:"seq"`
	Op        editor.Op `json:"op"`
	MappingID string    `json:"mapping_id"`
	Error     string    `json:"error,omitempty"`
}

type EditorState struct {
	SessionID string `json:"session_id"`
	editor.View
	Acks []AckView `json:"acks"`
}

type editorSession struct {
	mu       sync.Mutex
	editor   *editor.Editor
	lastUsed time.Time
}

// EditorSessions hosts headless editors for remote clients. Each session is
// used by one request at a time.
type EditorSessions struct {
	templates TemplateRepository
	store     mappings.Store
	ttl       time.Duration
	now       func() time.Time
	backoff   time.Duration

	mu       sync.Mutex
	sessions map[string]*editorSession
}

func NewEditorSessions(templates TemplateRepository, store mappings.Store, ttl time.Duration) *EditorSessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &EditorSessions{
		templates: templates,
		store:     store,
		ttl:       ttl,
		now:       time.Now,
		sessions:  make(map[string]*editorSession),
	}
}

// Open starts a session on a template at the given zoom.
func (s *EditorSessions) Open(ctx context.Context, templateID string, scale float64) (*EditorState, error) {
	t, err := s.templates.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	ed, err := editor.New(ctx, templateID, s.store, editor.Options{
		Scale:     scale,
		PageCount: t.PageCount,
		Backoff:   s.backoff,
	})
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	sess := &editorSession{editor: ed, lastUsed: s.now()}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	log.Printf("[editor] session %s opened on template %s", id, templateID)
	return state(id, ed, nil), nil
}

func (s *EditorSessions) get(id string) (*editorSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Apply feeds events to a session in order and stops at the first one that
// fails. The returned state reflects every event applied before the failure.
func (s *EditorSessions) Apply(ctx context.Context, id string, events []EditorEvent) (*EditorState, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = s.now()

	var applyErr error
	for i, ev := range events {
		if err := apply(ctx, sess.editor, ev); err != nil {
			applyErr = fmt.Errorf("event %d (%s): %w", i, ev.Type, err)
			break
		}
	}
	acks := sess.editor.ProcessAcks()
	return state(id, sess.editor, acks), applyErr
}

func apply(ctx context.Context, ed *editor.Editor, ev EditorEvent) error {
	p := geometry.Point{X: ev.X, Y: ev.Y}
	switch ev.Type {
	case EventPointerDown:
		ed.PointerDown(p)
	case EventPointerMove:
		ed.PointerMove(p)
	case EventPointerUp:
		return ed.PointerUp()
	case EventPlace:
		_, err := ed.Place(ev.FieldKey)
		return err
	case EventCancel:
		ed.CancelPlacing()
	case EventKey:
		return ed.KeyPress(editor.Key(ev.Key), ev.Shift)
	case EventSelect:
		return ed.Select(ev.MappingID)
	case EventDeselect:
		ed.Deselect()
	case EventAssign:
		return ed.AssignField(ev.FieldKey)
	case EventScale:
		return ed.SetScale(ev.Scale)
	case EventPage:
		return ed.SetPage(ev.Page)
	case EventFlush:
		return ed.Queue().Flush(ctx)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
	}
	return nil
}

// Reconcile waits for queued writes and reloads the session from the store.
func (s *EditorSessions) Reconcile(ctx context.Context, id string) (*EditorState, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = s.now()

	if err := sess.editor.Reconcile(ctx); err != nil {
		return nil, err
	}
	return state(id, sess.editor, nil), nil
}

// Close persists what the session still has queued and forgets it.
func (s *EditorSessions) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.editor.Close()
	log.Printf("[editor] session %s closed", id)
	return nil
}

// Sweep closes sessions idle for longer than the TTL and returns how many.
func (s *EditorSessions) Sweep(now time.Time) int {
	s.mu.Lock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.mu.TryLock() {
			if now.Sub(sess.lastUsed) > s.ttl {
				expired = append(expired, id)
			}
			sess.mu.Unlock()
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		if err := s.Close(id); err == nil {
			log.Printf("[editor] session %s expired", id)
		}
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done, then closes the
// remaining ones.
func (s *EditorSessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

func (s *EditorSessions) closeAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.Close(id)
	}
}

// Len is the number of open sessions.
func (s *EditorSessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func state(id string, ed *editor.Editor, acks []editor.Ack) *EditorState {
	st := &EditorState{SessionID: id, View: ed.View(), Acks: make([]AckView, 0, len(acks))}
	for _, a := range acks {
		av := AckView{Seq: a.Seq, Op: a.Op, MappingID: a.MappingID}
		if a.Err != nil {
			av.Error = a.Err.Error()
		}
		st.Acks = append(st.Acks, av)
	}
	return st
}
