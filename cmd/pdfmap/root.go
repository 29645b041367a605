package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/models"
	"LEX-PDFMAP/internal/processor"
)

var rootCmd = &cobra.Command{
	Use:           "pdfmap",
	Short:         "Map, detect and fill PDF templates",
	SilenceUsage:  true,
}

// dataDir is the workspace directory holding mappings.db.
var dataDir string

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "db", ".pdfmap", "Workspace directory")
}

func openStore() (*mappings.SQLiteStore, error) {
	store, err := mappings.NewSQLiteStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace %s: %w", dataDir, err)
	}
	return store, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// readProfile loads a JSON object file. An empty path is an empty profile.
func readProfile(path string) (processor.Profile, error) {
	p := processor.Profile{}
	if path == "" {
		return p, nil
	}
	if err := readJSON(path, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// readMappings accepts either a bare array or an object with a "mappings" key,
// which is what the API and the detect command print.
func readMappings(path string) ([]models.FieldMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var list []models.FieldMapping
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Mappings []models.FieldMapping `json:"mappings"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return wrapped.Mappings, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeOutput(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
