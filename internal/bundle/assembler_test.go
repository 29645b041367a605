package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LEX-PDFMAP/internal/models"
	"LEX-PDFMAP/internal/pdftest"
	"LEX-PDFMAP/internal/processor"
)

type mapSource map[string]*Template

func (s mapSource) Load(_ context.Context, templateID string) (*Template, error) {
	tpl, ok := s[templateID]
	if !ok {
		return nil, fmt.Errorf("template %s not found", templateID)
	}
	return tpl, nil
}

// echoFiller returns the template bytes unchanged. Templates whose bytes
// start with "slow" finish last.
type echoFiller struct{}

func (echoFiller) Fill(template []byte, _ []models.FieldMapping, _, _ processor.Profile) ([]byte, error) {
	if bytes.HasPrefix(template, []byte("slow")) {
		time.Sleep(30 * time.Millisecond)
	}
	if bytes.HasPrefix(template, []byte("bad")) {
		return nil, errors.New("cannot fill")
	}
	return template, nil
}

func readArchive(t *testing.T, data []byte) ([]string, map[string]string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var names []string
	contents := make(map[string]string)
	for _, f := range zr.File {
		names = append(names, f.Name)
		assert.True(t, f.Modified.Equal(entryTime), "entry %s has a fixed timestamp", f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[f.Name] = string(b)
	}
	return names, contents
}

func TestAssembleNamesByDisplayOrder(t *testing.T) {
	source := mapSource{
		"a": {Name: "Power of Attorney", Bytes: []byte("slow a")},
		"b": {Name: "Solicitud de Visado", Bytes: []byte("b")},
		"c": {Name: "Annex", Bytes: []byte("c")},
	}
	a := NewAssembler(source, echoFiller{}, Options{Workers: 3})

	res, err := a.Assemble(context.Background(), []Item{
		{TemplateID: "c", DisplayOrder: 3},
		{TemplateID: "a", DisplayOrder: 1},
		{TemplateID: "b", DisplayOrder: 2},
	}, nil, nil)
	require.NoError(t, err)

	names, contents := readArchive(t, res.Archive)
	assert.Equal(t, []string{"01_Power_of_Attorney.pdf", "02_Solicitud_de_Visado.pdf", "03_Annex.pdf"}, names)
	assert.Equal(t, "slow a", contents["01_Power_of_Attorney.pdf"])
	assert.Empty(t, res.Failures)
	require.Len(t, res.Files, 3)
	assert.Equal(t, "a", res.Files[0].TemplateID)
}

func TestAssembleKeepsInputOrderOnTies(t *testing.T) {
	source := mapSource{
		"x": {Name: "X", Bytes: []byte("x")},
		"y": {Name: "Y", Bytes: []byte("y")},
	}
	a := NewAssembler(source, echoFiller{}, Options{})

	res, err := a.Assemble(context.Background(), []Item{
		{TemplateID: "y", DisplayOrder: 0},
		{TemplateID: "x", DisplayOrder: 0},
	}, nil, nil)
	require.NoError(t, err)

	names, _ := readArchive(t, res.Archive)
	assert.Equal(t, []string{"01_Y.pdf", "02_X.pdf"}, names)
}

func TestAssembleSkipsFailures(t *testing.T) {
	source := mapSource{
		"a": {Name: "First", Bytes: []byte("a")},
		"b": {Name: "Second", Bytes: []byte("bad")},
		"c": {Name: "Third", Bytes: []byte("c")},
	}
	a := NewAssembler(source, echoFiller{}, Options{Workers: 2})

	res, err := a.Assemble(context.Background(), []Item{
		{TemplateID: "a", DisplayOrder: 1},
		{TemplateID: "b", DisplayOrder: 2},
		{TemplateID: "c", DisplayOrder: 3},
		{TemplateID: "missing", DisplayOrder: 4},
	}, nil, nil)
	require.NoError(t, err)

	names, _ := readArchive(t, res.Archive)
	assert.Equal(t, []string{"01_First.pdf", "03_Third.pdf"}, names)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, 2, res.Failures[0].Index)
	assert.Equal(t, "Second", res.Failures[0].Name)
	assert.Equal(t, "missing", res.Failures[1].TemplateID)
	assert.Contains(t, res.Failures[1].Message, "failed to load template")
}

func TestAssembleEmpty(t *testing.T) {
	a := NewAssembler(mapSource{}, echoFiller{}, Options{})

	_, err := a.Assemble(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyBundle)

	_, err = a.Assemble(context.Background(), []Item{{TemplateID: "gone"}, {TemplateID: "also-gone"}}, nil, nil)
	require.ErrorIs(t, err, ErrEmptyBundle)

	var empty *EmptyBundleError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, 2, empty.Items)
	assert.Len(t, empty.Failures, 2)
}

func TestAssembleReportsProgress(t *testing.T) {
	source := mapSource{}
	var items []Item
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("t%d", i)
		source[id] = &Template{Name: id, Bytes: []byte(id)}
		items = append(items, Item{TemplateID: id, DisplayOrder: i})
	}

	var (
		mu    sync.Mutex
		calls []int
	)
	a := NewAssembler(source, echoFiller{}, Options{
		Workers: 3,
		Progress: func(done, total int, _ string) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 6, total)
			calls = append(calls, done)
		},
	})

	_, err := a.Assemble(context.Background(), items, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, calls)
}

func TestAssembleWithFillEngine(t *testing.T) {
	mapping := models.FieldMapping{
		ID: "m1", FieldKey: "first_name", PageNumber: 1,
		XCoordinate: 100, YCoordinate: 100, Width: models.Float(200),
	}
	source := mapSource{
		"one":   {Name: "Formulario Único", Bytes: pdftest.Letter(), Mappings: []models.FieldMapping{mapping}},
		"two":   {Name: "Broken", Bytes: []byte("not a pdf")},
		"three": {Name: "Cover", Bytes: pdftest.Pages(2)},
	}
	a := NewAssembler(source, processor.NewFillEngine(processor.FillConfig{}), Options{})

	res, err := a.Assemble(context.Background(), []Item{
		{TemplateID: "one", DisplayOrder: 1},
		{TemplateID: "two", DisplayOrder: 2},
		{TemplateID: "three", DisplayOrder: 3},
	}, processor.Profile{"first_name": "Ana"}, nil)
	require.NoError(t, err)

	names, contents := readArchive(t, res.Archive)
	assert.Equal(t, []string{"01_Formulario_Unico.pdf", "03_Cover.pdf"}, names)
	n, err := pdftest.PageCount([]byte(contents["01_Formulario_Unico.pdf"]))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = pdftest.PageCount([]byte(contents["03_Cover.pdf"]))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, processor.ErrTemplateLoad)
}

func TestAssembleAllFailWithFillEngine(t *testing.T) {
	source := mapSource{
		"a": {Name: "A", Bytes: []byte("garbage")},
		"b": {Name: "B", Bytes: nil},
	}
	a := NewAssembler(source, processor.NewFillEngine(processor.FillConfig{}), Options{})

	res, err := a.Assemble(context.Background(), []Item{{TemplateID: "a"}, {TemplateID: "b"}}, nil, nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrEmptyBundle)
}

// delayedSource holds back some templates so that later items finish first.
type delayedSource struct {
	mapSource
	delays map[string]time.Duration
}

func (s delayedSource) Load(ctx context.Context, templateID string) (*Template, error) {
	time.Sleep(s.delays[templateID])
	return s.mapSource.Load(ctx, templateID)
}

func TestAssembleParallelFillEngineKeepsDisplayOrder(t *testing.T) {
	source := delayedSource{mapSource: mapSource{}, delays: map[string]time.Duration{}}
	var items []Item
	for i := 1; i <= 6; i++ {
		id := fmt.Sprintf("t%d", i)
		source.mapSource[id] = &Template{
			Name:  fmt.Sprintf("Form %d", i),
			Bytes: pdftest.Pages(i),
			Mappings: []models.FieldMapping{{
				ID: id, FieldKey: "first_name", PageNumber: 1, XCoordinate: 50, YCoordinate: 50,
			}},
		}
		// earlier positions finish last
		source.delays[id] = time.Duration(7-i) * 15 * time.Millisecond
		items = append(items, Item{TemplateID: id, DisplayOrder: i})
	}

	var (
		mu       sync.Mutex
		finished []string
	)
	a := NewAssembler(source, processor.NewFillEngine(processor.FillConfig{}), Options{
		Workers: 6,
		Progress: func(_, _ int, name string) {
			mu.Lock()
			defer mu.Unlock()
			finished = append(finished, name)
		},
	})

	res, err := a.Assemble(context.Background(), items, processor.Profile{"first_name": "Ana"}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.NotEqual(t, "Form 1", finished[0], "fills complete out of display order")

	names, contents := readArchive(t, res.Archive)
	require.Len(t, names, 6)
	for i, name := range names {
		assert.Equal(t, fmt.Sprintf("%02d_Form_%d.pdf", i+1, i+1), name)
		n, err := pdftest.PageCount([]byte(contents[name]))
		require.NoError(t, err)
		assert.Equal(t, i+1, n)
		content, err := pdftest.PageContent([]byte(contents[name]), 1)
		require.NoError(t, err)
		assert.Contains(t, content, "(Ana) Tj")
	}
}
