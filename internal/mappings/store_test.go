package mappings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LEX-PDFMAP/internal/models"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

// backends runs fn against every store that needs no external server.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func mapping(key string, page int, x, y float64) models.FieldMapping {
	return models.FieldMapping{FieldKey: key, PageNumber: page, XCoordinate: x, YCoordinate: y}
}

func TestCreateAndGet(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		m := mapping("first_name", 1, 100, 700)
		m.Width = models.Float(50)
		m.TriggerValue = models.String("si")

		id, err := s.Create(ctx, "tpl-1", m)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "tpl-1", got.TemplateID)
		assert.Equal(t, "first_name", got.FieldKey)
		assert.Equal(t, models.FieldTypeText, got.FieldType)
		require.NotNil(t, got.Width)
		assert.Equal(t, 50.0, *got.Width)
		assert.Nil(t, got.Height)
		require.NotNil(t, got.TriggerValue)
		assert.Equal(t, "si", *got.TriggerValue)
	})
}

func TestCreateRejectsInvalid(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.Create(ctx, "tpl-1", mapping("first_name", 0, 1, 1))
		assert.ErrorIs(t, err, ErrInvalidMapping)

		bad := mapping("first_name", 1, 1, 1)
		bad.Width = models.Float(0)
		_, err = s.Create(ctx, "tpl-1", bad)
		assert.ErrorIs(t, err, ErrInvalidMapping)

		_, err = s.Create(ctx, "tpl-1", mapping("", 1, 1, 1))
		assert.ErrorIs(t, err, ErrInvalidMapping)
	})
}

func TestCreateIsIdempotent(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		m := mapping("signature", 2, 10, 10)
		m.ID = "client-id"
		m.RequestID = "client-id"

		id1, err := s.Create(ctx, "tpl-1", m)
		require.NoError(t, err)
		id2, err := s.Create(ctx, "tpl-1", m)
		require.NoError(t, err)
		assert.Equal(t, "client-id", id1)
		assert.Equal(t, id1, id2)

		byRequest := mapping("signature", 2, 10, 10)
		byRequest.RequestID = "req-7"
		a, err := s.Create(ctx, "tpl-1", byRequest)
		require.NoError(t, err)
		b, err := s.Create(ctx, "tpl-1", byRequest)
		require.NoError(t, err)
		assert.Equal(t, a, b)

		list, err := s.List(ctx, "tpl-1")
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}

func TestListOrdersByPageThenCreation(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.CreateBatch(ctx, "tpl-1", []models.FieldMapping{
			mapping("c", 2, 0, 0),
			mapping("a", 1, 0, 0),
			mapping("d", 2, 0, 0),
			mapping("b", 1, 0, 0),
		})
		require.NoError(t, err)
		_, err = s.Create(ctx, "tpl-2", mapping("other", 1, 0, 0))
		require.NoError(t, err)

		list, err := s.List(ctx, "tpl-1")
		require.NoError(t, err)
		keys := make([]string, len(list))
		for i, m := range list {
			keys[i] = m.FieldKey
		}
		assert.Equal(t, []string{"a", "b", "c", "d"}, keys)
	})
}

func TestCreateBatchIsAllOrNothing(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.CreateBatch(ctx, "tpl-1", []models.FieldMapping{
			mapping("ok", 1, 0, 0),
			mapping("bad", -1, 0, 0),
		})
		assert.ErrorIs(t, err, ErrInvalidMapping)

		list, err := s.List(ctx, "tpl-1")
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestUpdateDistinguishesAbsentFromNull(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		m := mapping("first_name", 1, 100, 700)
		m.Width = models.Float(50)
		m.FontSize = models.Float(9)
		id, err := s.Create(ctx, "tpl-1", m)
		require.NoError(t, err)

		err = s.Update(ctx, id, UpdateRequest{
			XCoordinate: Set(120.0),
			Width:       Set[*float64](nil),
		})
		require.NoError(t, err)

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 120.0, got.XCoordinate)
		assert.Equal(t, 700.0, got.YCoordinate)
		assert.Nil(t, got.Width)
		require.NotNil(t, got.FontSize)
		assert.Equal(t, 9.0, *got.FontSize)
	})
}

func TestUpdateErrors(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		err := s.Update(ctx, "missing", UpdateRequest{XCoordinate: Set(1.0)})
		assert.ErrorIs(t, err, ErrNotFound)

		id, err := s.Create(ctx, "tpl-1", mapping("first_name", 1, 0, 0))
		require.NoError(t, err)
		err = s.Update(ctx, id, UpdateRequest{Height: Set(models.Float(-3))})
		assert.ErrorIs(t, err, ErrInvalidMapping)
	})
}

func TestDelete(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		id, err := s.Create(ctx, "tpl-1", mapping("first_name", 1, 0, 0))
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, id))
		_, err = s.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)

		assert.NoError(t, s.Delete(ctx, id), "deleting twice succeeds")
	})
}

func TestDeleteByTemplate(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.CreateBatch(ctx, "tpl-1", []models.FieldMapping{mapping("a", 1, 0, 0), mapping("b", 1, 0, 0)})
		require.NoError(t, err)
		keep, err := s.Create(ctx, "tpl-2", mapping("c", 1, 0, 0))
		require.NoError(t, err)

		require.NoError(t, s.DeleteByTemplate(ctx, "tpl-1"))

		list, err := s.List(ctx, "tpl-1")
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = s.Get(ctx, keep)
		assert.NoError(t, err)
	})
}

func TestSQLiteWorkspaceTemplates(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTemplate(ctx, WorkspaceTemplate{ID: "tpl-1", Name: "Power of attorney", SourcePath: "poa.pdf", PageCount: 2}))
	_, err := s.Create(ctx, "tpl-1", mapping("first_name", 1, 0, 0))
	require.NoError(t, err)

	got, err := s.Template(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.PageCount)

	all, err := s.Templates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeleteTemplate(ctx, "tpl-1"))
	_, err = s.Template(ctx, "tpl-1")
	assert.ErrorIs(t, err, ErrNotFound)
	list, err := s.List(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	id, err := s.Create(ctx, "tpl-1", mapping("first_name", 1, 0, 0))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "first_name", got.FieldKey)
}
