package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/farmbooks-dev/farmbooks/internal/config"
	"github.com/farmbooks-dev/farmbooks/internal/importlog"
)

func newInitCommand() *cobra.Command {
	var book string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a farmbooks.yaml and its data directories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, book, force)
		},
	}

	cmd.Flags().StringVar(&book, "book", "", "path to the business GnuCash SQLite book (required)")
	_ = cmd.MarkFlagRequired("book")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing farmbooks.yaml")

	return cmd
}

func runInit(out io.Writer, dir, book string, force bool) error {
	cfgPath := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	// ~ paths stay portable; other relative paths are taken from the cwd
	if !filepath.IsAbs(book) && config.ExpandHome(book) == book {
		abs, err := filepath.Abs(book)
		if err != nil {
			return fmt.Errorf("resolving book path: %w", err)
		}
		book = abs
	}
	cfg := config.Default(book)
	dirs := []string{
		cfg.Report.DataDir,
		cfg.Report.ExportDir,
		filepath.Dir(importlog.Path(cfg.Report.DataDir)),
	}
	for _, d := range dirs {
		if err := ensureDir(filepath.Join(dir, d)); err != nil {
			return err
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(out, "Initialized farmbooks project at %s\n", dir)
	return nil
}
