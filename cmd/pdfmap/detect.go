package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/processor"
	"LEX-PDFMAP/internal/services"
)

var detectCmd = &cobra.Command{
	Use:   "detect [pdf]",
	Short: "Find form widgets in a PDF",
	Long: `Prints the form widgets of a PDF as field mappings. With --save the
mappings are stored in the workspace under --template (a new id by default).`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

var (
	detectSave     bool
	detectTemplate string
)

func init() {
	detectCmd.Flags().BoolVar(&detectSave, "save", false, "Store the detected mappings in the workspace")
	detectCmd.Flags().StringVar(&detectTemplate, "template", "", "Template id to store the mappings under")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	res, err := services.DetectBytes(data)
	if err != nil {
		return err
	}
	if !detectSave || res.Found == 0 {
		return printJSON(cmd, res)
	}

	info, err := processor.Inspect(data)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	templateID := detectTemplate
	if templateID == "" {
		templateID = uuid.New().String()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	err = store.SaveTemplate(ctx, mappings.WorkspaceTemplate{
		ID:         templateID,
		Name:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		SourcePath: abs,
		PageCount:  info.PageCount,
	})
	if err != nil {
		return err
	}

	ids, err := store.CreateBatch(ctx, templateID, res.Mappings)
	if err != nil {
		return fmt.Errorf("failed to save mappings: %w", err)
	}
	for i := range res.Mappings {
		res.Mappings[i].ID = ids[i]
		res.Mappings[i].TemplateID = templateID
	}
	cmd.PrintErrf("Saved %d mappings under template %s\n", len(ids), templateID)
	return printJSON(cmd, res)
}
