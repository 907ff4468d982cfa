package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vietddude/curator/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection progress for every record type",
	Args:  cobra.NoArgs,
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	app := newApp(ctx, cfg)
	defer app.Close()

	cursors, err := app.Cursors().List(ctx)
	if err != nil {
		slog.Error("Failed to list cursors", "error", err)
		app.Close()
		os.Exit(1)
	}
	if len(cursors) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No cursors found (cursor backend: %s)\n", cfg.Cursor.Backend)
		return
	}
	renderCursors(cmd.OutOrStdout(), cursors)
}

func renderCursors(w io.Writer, cursors []*domain.Cursor) {
	sort.Slice(cursors, func(i, j int) bool {
		return cursors[i].RecordType < cursors[j].RecordType
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Type", "State", "Page", "Checkpoint Page", "Records", "Run ID", "Updated"})
	for _, c := range cursors {
		updated := "-"
		if !c.UpdatedAt.IsZero() {
			updated = c.UpdatedAt.Format(time.RFC3339)
		}
		t.AppendRow(table.Row{c.RecordType, c.State, c.Page, c.CheckpointPage, c.Records, c.RunID, updated})
	}
	t.Render()
}
