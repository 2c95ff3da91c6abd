package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/ragdebug/internal/retrieval"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Query the retrieval store the way the pipeline does",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}
		k, _ := cmd.Flags().GetInt("top-k")

		store, err := retrieval.Open(cmd.Context(), cfg.Retrieval, logger)
		if err != nil {
			return fmt.Errorf("open retrieval store: %w", err)
		}
		defer store.Close()

		if k <= 0 {
			k = cfg.Retrieval.TopK
		}
		docs, err := retrieval.NewGateway(store, k, logger).Retrieve(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(docs) == 0 {
			fmt.Fprintln(w, "No documents found.")
			return nil
		}
		for i, d := range docs {
			fmt.Fprintf(w, "--- %d ---\n%s\n", i+1, strings.TrimSpace(d))
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntP("top-k", "k", 0, "number of results (default: retrieval.top_k)")
}
