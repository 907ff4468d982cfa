package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietddude/curator/internal/recommend"
)

var recommendMode string

var recommendCmd = &cobra.Command{
	Use:   "recommend --mode user|anime <search>",
	Short: "Print recommendations for a user or an anime title",
	Args:  cobra.MinimumNArgs(1),
	Run:   runRecommend,
}

func init() {
	recommendCmd.Flags().StringVar(&recommendMode, "mode", "anime", "recommendation mode: user or anime")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	app := newApp(ctx, cfg)
	defer app.Close()

	res := app.Recommend(ctx, recommendMode, strings.Join(args, " "))
	recommend.Render(cmd.OutOrStdout(), res)
	if !res.OK() {
		app.Close()
		os.Exit(1)
	}
}
