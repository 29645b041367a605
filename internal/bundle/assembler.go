// Package bundle fills an ordered set of templates for one subject and packs
// the results into a single zip archive.
package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"LEX-PDFMAP/internal/models"
	"LEX-PDFMAP/internal/processor"
)

const DefaultWorkers = 4

// entryTime is stamped on every archive entry so that identical inputs give
// identical archive layouts.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

var ErrEmptyBundle = errors.New("bundle produced no documents")

// EmptyBundleError is returned when a bundle has no items or every item
// failed. Failures lists what went wrong.
type EmptyBundleError struct {
	Items    int
	Failures []Failure
}

func (e *EmptyBundleError) Error() string {
	if e.Items == 0 {
		return "bundle has no templates"
	}
	return fmt.Sprintf("all %d templates of the bundle failed", e.Items)
}

func (e *EmptyBundleError) Is(target error) bool { return target == ErrEmptyBundle }

// Template is what a Source hands the assembler for one item.
type Template struct {
	Name     string
	Bytes    []byte
	Mappings []models.FieldMapping
}

type Source interface {
	Load(ctx context.Context, templateID string) (*Template, error)
}

// Filler is satisfied by *processor.FillEngine.
type Filler interface {
	Fill(template []byte, mappings []models.FieldMapping, subject, org processor.Profile) ([]byte, error)
}

type Item struct {
	TemplateID   string `json:"template_id"`
	DisplayOrder int    `json:"display_order"`
}

type Failure struct {
	Index      int    `json:"index"`
	TemplateID string `json:"template_id"`
	Name       string `json:"name,omitempty"`
	Err        error  `json:"-"`
	Message    string `json:"error"`
}

type File struct {
	Name       string `json:"name"`
	TemplateID string `json:"template_id"`
	Size       int    `json:"size"`
}

type Result struct {
	Archive  []byte    `json:"-"`
	Files    []File    `json:"files"`
	Failures []Failure `json:"failures"`
}

// ProgressFunc is called once per finished item, successful or not. Calls
// are serialized; done counts up to total.
type ProgressFunc func(done, total int, name string)

type Options struct {
	Workers  int
	Progress ProgressFunc
}

// Assembler holds no per-run state and may be shared.
type Assembler struct {
	source   Source
	filler   Filler
	workers  int
	progress ProgressFunc
}

func NewAssembler(source Source, filler Filler, opts Options) *Assembler {
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Assembler{source: source, filler: filler, workers: workers, progress: opts.Progress}
}

type outcome struct {
	name string
	pdf  []byte
	err  error
}

// Assemble fills every item and returns the archive. Entries are named
// "{index:02d}_{name}.pdf" where index is the 1-based display position, so a
// failed item leaves a gap in the numbering.
func (a *Assembler) Assemble(ctx context.Context, items []Item, subject, org processor.Profile) (*Result, error) {
	if len(items) == 0 {
		return nil, &EmptyBundleError{}
	}

	ordered := make([]Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DisplayOrder < ordered[j].DisplayOrder
	})

	outcomes := make([]outcome, len(ordered))
	var (
		mu   sync.Mutex
		done int
	)
	report := func(name string) {
		if a.progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		a.progress(done, len(ordered), name)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, item := range ordered {
		g.Go(func() error {
			outcomes[i] = a.fill(gctx, item, subject, org)
			report(outcomes[i].name)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{Files: make([]File, 0, len(ordered)), Failures: make([]Failure, 0)}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, o := range outcomes {
		index := i + 1
		if o.err != nil {
			log.Printf("[bundle] skipping template %s (position %d): %v", ordered[i].TemplateID, index, o.err)
			res.Failures = append(res.Failures, Failure{
				Index:      index,
				TemplateID: ordered[i].TemplateID,
				Name:       o.name,
				Err:        o.err,
				Message:    o.err.Error(),
			})
			continue
		}

		name := EntryName(index, o.name)
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: entryTime})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		if _, err := w.Write(o.pdf); err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", name, err)
		}
		res.Files = append(res.Files, File{Name: name, TemplateID: ordered[i].TemplateID, Size: len(o.pdf)})
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}

	if len(res.Files) == 0 {
		return nil, &EmptyBundleError{Items: len(ordered), Failures: res.Failures}
	}
	res.Archive = buf.Bytes()
	log.Printf("[bundle] assembled %d files, %d failures", len(res.Files), len(res.Failures))
	return res, nil
}

func (a *Assembler) fill(ctx context.Context, item Item, subject, org processor.Profile) (o outcome) {
	o.name = item.TemplateID
	defer func() {
		if r := recover(); r != nil {
			o.pdf = nil
			o.err = fmt.Errorf("fill panicked: %v", r)
		}
	}()

	tpl, err := a.source.Load(ctx, item.TemplateID)
	if err != nil {
		o.err = fmt.Errorf("failed to load template: %w", err)
		return o
	}
	if tpl.Name != "" {
		o.name = tpl.Name
	}
	o.pdf, o.err = a.filler.Fill(tpl.Bytes, tpl.Mappings, subject, org)
	return o
}
