package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"LEX-PDFMAP/internal/models"
	"LEX-PDFMAP/internal/processor"
)

var fillCmd = &cobra.Command{
	Use:   "fill [pdf]",
	Short: "Fill a template for one subject",
	Long: `Stamps subject and organization values onto a PDF. Mappings come from a
JSON file (--mappings) or from the workspace (--template).`,
	Args: cobra.ExactArgs(1),
	RunE: runFill,
}

var fillOpts struct {
	mappings string
	template string
	subject  string
	org      string
	output   string
	date     string
}

func init() {
	f := fillCmd.Flags()
	f.StringVar(&fillOpts.mappings, "mappings", "", "JSON file with the field mappings")
	f.StringVar(&fillOpts.template, "template", "", "Workspace template id to read mappings from")
	f.StringVar(&fillOpts.subject, "subject", "", "JSON file with the subject profile")
	f.StringVar(&fillOpts.org, "org", "", "JSON file with the organization profile")
	f.StringVarP(&fillOpts.output, "output", "o", "filled.pdf", "Output file")
	f.StringVar(&fillOpts.date, "date-format", "02/01/2006", "Go layout for today_date")
	fillCmd.MarkFlagsMutuallyExclusive("mappings", "template")
	rootCmd.AddCommand(fillCmd)
}

func loadMappings(ctx context.Context, file, templateID string) ([]models.FieldMapping, error) {
	if file != "" {
		return readMappings(file)
	}
	if templateID == "" {
		return nil, errors.New("either --mappings or --template is required")
	}
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.List(ctx, templateID)
}

func runFill(cmd *cobra.Command, args []string) error {
	template, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	list, err := loadMappings(context.Background(), fillOpts.mappings, fillOpts.template)
	if err != nil {
		return err
	}
	subject, err := readProfile(fillOpts.subject)
	if err != nil {
		return err
	}
	org, err := readProfile(fillOpts.org)
	if err != nil {
		return err
	}

	engine := processor.NewFillEngine(processor.FillConfig{DateLayout: fillOpts.date})
	out, err := engine.Fill(template, list, subject, org)
	if err != nil {
		return err
	}
	if err := writeOutput(fillOpts.output, out); err != nil {
		return err
	}
	cmd.Printf("Filled %d mappings into %s\n", len(list), fillOpts.output)
	return nil
}
