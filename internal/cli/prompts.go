package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/ragdebug/internal/prompt"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect and customize prompt templates",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in prompt templates",
	Run: func(cmd *cobra.Command, args []string) {
		for _, n := range prompt.Names() {
			cmd.Println(n)
		}
	},
}

var promptsInstallCmd = &cobra.Command{
	Use:   "install [dir]",
	Short: "Copy the built-in templates into a directory for editing",
	Long: `Write the built-in templates into dir (default: prompts.template_dir).
Existing files are left untouched. Point prompts.template_dir at the
directory to use the edited copies.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir = cfg.Prompts.TemplateDir
		}
		if dir == "" {
			return fmt.Errorf("no directory given and prompts.template_dir is not set")
		}

		written, err := prompt.Install(dir)
		if err != nil {
			return err
		}
		if len(written) == 0 {
			cmd.Printf("All templates already present in %s\n", dir)
			return nil
		}
		for _, p := range written {
			cmd.Printf("wrote %s\n", filepath.Join(dir, p))
		}
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsInstallCmd)
}
