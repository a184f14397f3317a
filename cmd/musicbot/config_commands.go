package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"musicbot/internal/config"
	"musicbot/internal/preflight"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var templatePath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file and user template",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveTarget(targetPath, config.DefaultConfigPath)
			if err != nil {
				return err
			}
			template, err := resolveTarget(templatePath, func() (string, error) {
				return filepath.Join(filepath.Dir(target), "template.json"), nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := writeScaffold(target, overwrite, config.CreateSample); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)

			if err := writeScaffold(template, overwrite, config.CreateTemplate); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote user template to %s\n", template)
			fmt.Fprintln(out, "Set bot.token (or export MUSICBOT_TOKEN) and paths.template_path before running musicbot.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().StringVar(&templatePath, "template", "", "Destination for the user template (default: next to the config)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing files if present")
	return cmd
}

func resolveTarget(value string, fallback func() (string, error)) (string, error) {
	target := strings.TrimSpace(value)
	if target == "" {
		path, err := fallback()
		if err != nil {
			return "", fmt.Errorf("determine default path: %w", err)
		}
		return path, nil
	}
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	return expanded, nil
}

func writeScaffold(target string, overwrite bool, create func(string) error) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	if !overwrite {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("file already exists at %s (use --overwrite to replace it)", target)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("check path: %w", err)
		}
	}
	return create(target)
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file and user template",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			if cfg.TokenIsPlaceholder() {
				fmt.Fprintln(out, "Warning: bot.token is still the sample placeholder")
			}
			if result := preflight.CheckTemplate(cfg.Paths.TemplatePath); !result.Passed {
				return fmt.Errorf("user template invalid: %s", result.Detail)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
