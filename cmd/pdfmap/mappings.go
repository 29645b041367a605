package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"LEX-PDFMAP/internal/mappings"
)

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Inspect and edit workspace mappings",
}

var mappingsListCmd = &cobra.Command{
	Use:   "list [template-id]",
	Short: "List templates, or the mappings of one template",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMappingsList,
}

var mappingsDeleteCmd = &cobra.Command{
	Use:   "delete [mapping-id]",
	Short: "Delete a mapping, or a whole template with --template",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMappingsDelete,
}

var deleteTemplate string

func init() {
	mappingsDeleteCmd.Flags().StringVar(&deleteTemplate, "template", "", "Delete this template and all its mappings")

	mappingsCmd.AddCommand(mappingsListCmd)
	mappingsCmd.AddCommand(mappingsDeleteCmd)
	rootCmd.AddCommand(mappingsCmd)
}

func runMappingsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()

	if len(args) == 1 {
		list, err := store.List(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, list)
	}

	templates, err := store.Templates(ctx)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		cmd.Println("No templates in workspace")
		return nil
	}
	for _, t := range templates {
		list, err := store.List(ctx, t.ID)
		if err != nil {
			return err
		}
		cmd.Printf("  %s\n", t.ID)
		cmd.Printf("    Name: %s\n", t.Name)
		cmd.Printf("    Source: %s\n", t.SourcePath)
		cmd.Printf("    Pages: %d, mappings: %d\n", t.PageCount, len(list))
	}
	cmd.Printf("\nTotal: %d templates\n", len(templates))
	return nil
}

func runMappingsDelete(cmd *cobra.Command, args []string) error {
	if (len(args) == 1) == (deleteTemplate != "") {
		return errors.New("give either a mapping id or --template")
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()

	if deleteTemplate != "" {
		if _, err := store.Template(ctx, deleteTemplate); err != nil {
			if errors.Is(err, mappings.ErrNotFound) {
				return fmt.Errorf("template %s not found", deleteTemplate)
			}
			return err
		}
		if err := store.DeleteTemplate(ctx, deleteTemplate); err != nil {
			return err
		}
		cmd.Printf("Deleted template %s\n", deleteTemplate)
		return nil
	}

	if err := store.Delete(ctx, args[0]); err != nil {
		return err
	}
	cmd.Printf("Deleted mapping %s\n", args[0])
	return nil
}
