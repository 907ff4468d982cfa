package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vietddude/curator/internal/core/domain"
)

var resetCursorCmd = &cobra.Command{
	Use:   "reset-cursor [record_type] [page]",
	Short: "Reset the cursor for a record type so a resumed fetch continues after page",
	Args:  cobra.ExactArgs(2),
	Run:   runResetCursor,
}

func init() {
	rootCmd.AddCommand(resetCursorCmd)
}

func runResetCursor(cmd *cobra.Command, args []string) {
	recordType, err := domain.ParseRecordType(args[0])
	if err != nil {
		fmt.Printf("Invalid record type: %v\n", err)
		os.Exit(1)
	}
	page, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Printf("Invalid page: %v\n", err)
		os.Exit(1)
	}

	cfg := loadConfig()

	ctx := context.Background()
	app := newApp(ctx, cfg)
	defer app.Close()

	if err := app.Cursors().Reset(ctx, recordType, page); err != nil {
		slog.Error("Failed to reset cursor", "error", err)
		app.Close()
		os.Exit(1)
	}

	fmt.Printf("Successfully reset cursor for %s to page %d\n", recordType, page)
}
