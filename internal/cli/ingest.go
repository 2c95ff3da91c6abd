package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/ragdebug/internal/ingest"
	"github.com/lucasnoah/ragdebug/internal/retrieval"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [docs-path]",
	Short: "Index reference documents into the retrieval store",
	Long: `Walk a documents directory (default: ingest.docs_path), split every
.txt, .md and .log file into overlapping chunks and add them to the
configured retrieval store. Re-ingesting unchanged files is a no-op.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}
		root := cfg.Ingest.DocsPath
		if len(args) == 1 {
			root = args[0]
		}

		store, err := retrieval.Open(cmd.Context(), cfg.Retrieval, logger)
		if err != nil {
			return fmt.Errorf("open retrieval store: %w", err)
		}
		defer store.Close()

		rep, err := ingest.New(store, cfg.Ingest, logger).Run(cmd.Context(), root)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Scanned %d file(s): %d loaded, %d skipped.\n", rep.Files, rep.Loaded, len(rep.Skipped))
		fmt.Fprintf(w, "Chunks: %d produced, %d new.\n", rep.Chunks, rep.Added)
		for _, s := range rep.Skipped {
			fmt.Fprintf(w, "  skipped %s\n", s)
		}
		return nil
	},
}
