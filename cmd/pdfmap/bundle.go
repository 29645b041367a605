package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"LEX-PDFMAP/internal/bundle"
	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/processor"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Fill several templates into one zip archive",
	Long: `Reads a manifest listing templates in display order and writes a zip with
one filled PDF per template. Templates that cannot be filled are reported
and left out.

Manifest:
  {"items": [{"path": "form.pdf", "mappings": "form.json", "display_order": 1},
             {"template_id": "<workspace id>", "display_order": 2}]}`,
	Args: cobra.NoArgs,
	RunE: runBundle,
}

var bundleOpts struct {
	manifest string
	subject  string
	org      string
	output   string
	workers  int
}

func init() {
	f := bundleCmd.Flags()
	f.StringVar(&bundleOpts.manifest, "manifest", "", "JSON manifest of the bundle")
	f.StringVar(&bundleOpts.subject, "subject", "", "JSON file with the subject profile")
	f.StringVar(&bundleOpts.org, "org", "", "JSON file with the organization profile")
	f.StringVarP(&bundleOpts.output, "output", "o", "bundle.zip", "Output file")
	f.IntVar(&bundleOpts.workers, "workers", bundle.DefaultWorkers, "Templates filled in parallel")
	_ = bundleCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(bundleCmd)
}

type manifestItem struct {
	TemplateID   string `json:"template_id"`
	Path         string `json:"path"`
	Name         string `json:"name"`
	Mappings     string `json:"mappings"`
	DisplayOrder int    `json:"display_order"`
}

type manifest struct {
	Items []manifestItem `json:"items"`
}

// manifestSource loads manifest items by their position key. Relative paths
// are taken from the manifest's directory.
type manifestSource struct {
	dir   string
	items map[string]manifestItem
	store *mappings.SQLiteStore
}

func (s *manifestSource) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.dir, p)
}

func (s *manifestSource) Load(ctx context.Context, key string) (*bundle.Template, error) {
	item, ok := s.items[key]
	if !ok {
		return nil, fmt.Errorf("unknown manifest item %s", key)
	}

	path, name := s.resolve(item.Path), item.Name
	if path == "" {
		if s.store == nil || item.TemplateID == "" {
			return nil, fmt.Errorf("item %s has neither a path nor a workspace template", key)
		}
		wt, err := s.store.Template(ctx, item.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", item.TemplateID, err)
		}
		path = wt.SourcePath
		if name == "" {
			name = wt.Name
		}
	}
	if name == "" {
		name = filepath.Base(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tpl := &bundle.Template{Name: name, Bytes: data}

	switch {
	case item.Mappings != "":
		tpl.Mappings, err = readMappings(s.resolve(item.Mappings))
	case item.TemplateID != "" && s.store != nil:
		tpl.Mappings, err = s.store.List(ctx, item.TemplateID)
	}
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

func runBundle(cmd *cobra.Command, _ []string) error {
	var m manifest
	if err := readJSON(bundleOpts.manifest, &m); err != nil {
		return err
	}
	subject, err := readProfile(bundleOpts.subject)
	if err != nil {
		return err
	}
	org, err := readProfile(bundleOpts.org)
	if err != nil {
		return err
	}

	source := &manifestSource{
		dir:   filepath.Dir(bundleOpts.manifest),
		items: make(map[string]manifestItem, len(m.Items)),
	}
	items := make([]bundle.Item, len(m.Items))
	needStore := false
	for i, it := range m.Items {
		key := strconv.Itoa(i)
		source.items[key] = it
		items[i] = bundle.Item{TemplateID: key, DisplayOrder: it.DisplayOrder}
		if it.TemplateID != "" && (it.Path == "" || it.Mappings == "") {
			needStore = true
		}
	}
	if needStore {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		source.store = store
	}

	a := bundle.NewAssembler(source, processor.NewFillEngine(processor.FillConfig{}), bundle.Options{
		Workers: bundleOpts.workers,
		Progress: func(done, total int, name string) {
			cmd.PrintErrf("[%d/%d] %s\n", done, total, name)
		},
	})
	res, err := a.Assemble(context.Background(), items, subject, org)
	if err != nil {
		return err
	}
	if err := writeOutput(bundleOpts.output, res.Archive); err != nil {
		return err
	}

	for _, f := range res.Failures {
		cmd.PrintErrf("skipped #%d %s: %s\n", f.Index, f.Name, f.Message)
	}
	cmd.Printf("Wrote %d files to %s (%d skipped)\n", len(res.Files), bundleOpts.output, len(res.Failures))
	return nil
}
