package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/estatetools/opsdash/internal/config"
	"github.com/estatetools/opsdash/internal/logger"
	"github.com/estatetools/opsdash/internal/models"
	"github.com/estatetools/opsdash/internal/sheets"
	"github.com/estatetools/opsdash/internal/storage"
	"github.com/estatetools/opsdash/internal/todo"
)

// NewGenerateCmd creates the generate command
func NewGenerateCmd() *cobra.Command {
	var startFlag, endFlag, outFlag, fixturesFlag string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the task list from the spreadsheet",
		Long:  "Reads the configured spreadsheet (or a local fixtures file), derives the task list for the given window, and writes it to a local file",
		RunE: func(cmd *cobra.Command, args []string) error {
			zapLogger, err := logger.NewDevelopmentLogger(false)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync(zapLogger) }()

			today := models.DateOf(time.Now())
			start := today.AddDays(-15)
			end := today.AddDays(15)
			if startFlag != "" {
				if start, err = models.ParseDate(startFlag); err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
			}
			if endFlag != "" {
				if end, err = models.ParseDate(endFlag); err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
			}
			if end.Before(start) {
				return fmt.Errorf("--end precedes --start")
			}

			ctx := context.Background()
			mapping, err := sheets.LoadMapping(os.Getenv("COLUMN_MAP_FILE"))
			if err != nil {
				return err
			}

			var source sheets.Source
			if fixturesFlag != "" {
				if source, err = loadFixtures(fixturesFlag, mapping); err != nil {
					return err
				}
			} else {
				// Live mode needs the full config, including SPREADSHEET_NAME.
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				httpClient, err := sheets.NewHTTPClient(ctx, cfg.CredentialsFile, cfg.TokenFile)
				if err != nil {
					return err
				}
				if source, err = sheets.NewGoogleSource(ctx, httpClient, cfg.SpreadsheetName, mapping, zapLogger); err != nil {
					return err
				}
			}

			persist := storage.NewFileStore(outFlag)
			store := todo.NewStore(source, mapping, persist, zapLogger)
			if err := store.Load(ctx); err != nil {
				fmt.Printf("No existing document at %s, starting empty\n", outFlag)
			}

			store.Generate(ctx, start, end)
			if err := store.Save(ctx); err != nil {
				return fmt.Errorf("failed to save task list: %w", err)
			}

			tasks := store.Tasks()
			fmt.Printf("Generated %d tasks for %s..%s\n", len(tasks), start, end)
			for _, task := range tasks {
				due := task.DueDate.String()
				if due == "" {
					due = "undated"
				}
				fmt.Printf("  - %-8s %-10s %-10s %s\n", task.ApCode, due, task.Status, task.Reason)
			}
			fmt.Printf("Written to %s\n", outFlag)
			return nil
		},
	}

	cmd.Flags().StringVar(&startFlag, "start", "", "Window start date (YYYY-MM-DD, default today-15d)")
	cmd.Flags().StringVar(&endFlag, "end", "", "Window end date (YYYY-MM-DD, default today+15d)")
	cmd.Flags().StringVar(&outFlag, "out", "todo_list.json", "Output document path")
	cmd.Flags().StringVar(&fixturesFlag, "fixtures", "", "JSON fixtures file mapping table names to raw rows, used instead of the live spreadsheet")

	return cmd
}

// loadFixtures reads a {"TABLE": [["cell", ...], ...]} JSON file into an
// in-memory source, running the same header detection as the live path.
func loadFixtures(path string, mapping sheets.Mapping) (*sheets.StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	var tables map[string][][]string
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	source := sheets.NewStaticSource()
	for name, raw := range tables {
		if err := source.SetRaw(name, raw, mapping.Marker(name)); err != nil {
			return nil, fmt.Errorf("fixture table %s: %w", name, err)
		}
	}
	return source, nil
}
