package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitesync/internal/config"
)

//go:embed templates/sitesync.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sitesync profile file",
		Long: `Init writes a commented .sitesync profile to the current directory.

The profile holds crawl defaults and per-site overrides such as the
URL filter, required text, cookies and headers. Command line flags
always take precedence over the profile.

Examples:
  # Create .sitesync in the current directory
  sitesync init

  # Create the profile at a specific path
  sitesync init -o ~/.config/sitesync/config.yaml

  # Overwrite an existing file
  sitesync init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile, "Output file path for the profile")
	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing profile")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/sitesync.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Profiles may hold cookies and tokens.
	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure per-site settings such as:")
	fmt.Fprintln(out, "  - URL filter, required text and link prefix")
	fmt.Fprintln(out, "  - Page budget, depth and render mode")
	fmt.Fprintln(out, "  - Authentication cookies and headers")
	return nil
}
