package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/ragdebug/internal/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the local SQLite document store",
}

func openDB() (*db.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return db.Open(cfg.Retrieval.SQLitePath)
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.Migrate(); err != nil {
			return err
		}
		cmd.Printf("Migrated %s\n", d.Path())
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every indexed chunk (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to reset without --yes")
		}
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.Reset(); err != nil {
			return err
		}
		cmd.Printf("Reset %s\n", d.Path())
		return nil
	},
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show indexed chunk counts per source",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.Migrate(); err != nil {
			return err
		}

		total, err := d.CountChunks()
		if err != nil {
			return err
		}
		sources, err := d.ListSources()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%d chunk(s) from %d source(s)\n", total, len(sources))
		for _, s := range sources {
			fmt.Fprintf(w, "  %6d  %s\n", s.Chunks, s.Source)
		}
		return nil
	},
}

var dbForgetCmd = &cobra.Command{
	Use:   "forget <source>",
	Short: "Remove every chunk ingested from one source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()
		if err := d.Migrate(); err != nil {
			return err
		}
		n, err := d.DeleteSource(args[0])
		if err != nil {
			return err
		}
		cmd.Printf("Removed %d chunk(s) from %s\n", n, args[0])
		return nil
	},
}

func init() {
	dbResetCmd.Flags().Bool("yes", false, "confirm the reset")
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
	dbCmd.AddCommand(dbStatsCmd)
	dbCmd.AddCommand(dbForgetCmd)
}
