package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/ragdebug/internal/orchestrator"
	"github.com/lucasnoah/ragdebug/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run [error-log-file]",
	Short: "Debug a Python error log",
	Long: `Run the debugging pipeline on an error log read from a file, or from
stdin when the argument is omitted or "-".

Progress lines go to stderr; the result goes to stdout as text, or as JSON
with --json. --output additionally writes the JSON result to a file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}

		src := "-"
		if len(args) == 1 {
			src = args[0]
		}
		errorLog, err := readInput(cmd.InOrStdin(), src)
		if err != nil {
			return fmt.Errorf("read error log: %w", err)
		}
		if strings.TrimSpace(errorLog) == "" {
			return fmt.Errorf("error log is empty")
		}

		var code string
		if path, _ := cmd.Flags().GetString("code"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read code: %w", err)
			}
			code = string(data)
		}

		var progress io.Writer
		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			progress = cmd.ErrOrStderr()
		}

		o, closeStore, err := buildOrchestrator(cmd.Context(), cfg, logger, progress)
		if err != nil {
			return err
		}
		defer closeStore()

		maxAttempts, _ := cmd.Flags().GetInt("max-attempts")
		res := o.Run(cmd.Context(), orchestrator.RunOpts{
			ErrorLog:        errorLog,
			UserCodeSnippet: code,
			MaxAttempts:     maxAttempts,
		})

		asJSON, _ := cmd.Flags().GetBool("json")
		outPath, _ := cmd.Flags().GetString("output")
		if asJSON || outPath != "" {
			data, err := report.JSON(res)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := report.WriteFile(outPath, data); err != nil {
					return fmt.Errorf("write result: %w", err)
				}
			}
			if asJSON {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
		}
		return report.Text(cmd.OutOrStdout(), res)
	},
}

// readInput reads a whole file, or stdin when path is "-".
func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func init() {
	runCmd.Flags().String("code", "", "file with the code that produced the error")
	runCmd.Flags().Int("max-attempts", 0, "override max_attempts from config")
	runCmd.Flags().Bool("json", false, "print the result as JSON")
	runCmd.Flags().StringP("output", "o", "", "also write the JSON result to this file")
	runCmd.Flags().BoolP("quiet", "q", false, "suppress progress lines")
}
