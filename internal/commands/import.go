package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/importer"
	"github.com/farmbooks-dev/farmbooks/internal/watcher"
)

// defaultFormat is the parser used for load files.
const defaultFormat = "elevator"

// loadImporter imports load files into one open book.
type loadImporter struct {
	s        *session
	accounts *accounts.Cache
	im       *importer.Importer
	parser   importer.Parser
	out      io.Writer
	errOut   io.Writer
}

func newLoadImporter(s *session, cmd *cobra.Command, format string) (*loadImporter, error) {
	registry := importer.DefaultRegistry()
	parser := registry.Get(format)
	if parser == nil {
		return nil, fmt.Errorf("unknown format %q (known: %s)", format, strings.Join(registry.Formats(), ", "))
	}
	cache := accounts.NewCache(s.store, s.accountOptions())
	im := importer.New(s.store, cache, importer.Options{
		Elevator: s.cfg.Elevator.Name,
		DataDir:  s.dataDir(),
		Logger:   s.log,
	})
	return &loadImporter{s: s, accounts: cache, im: im, parser: parser, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}, nil
}

// importFile imports path and moves it to the processed dir when one is
// configured. A file with invalid loads is moved too, so it is not retried;
// its ErrInvalidLoads error is still returned.
func (l *loadImporter) importFile(ctx context.Context, path string) error {
	// accounts may have been edited in GnuCash since the last file
	l.accounts.Invalidate()

	plan, err := l.im.ImportFile(ctx, path, l.parser)
	if err != nil {
		if errors.Is(err, importer.ErrInvalidLoads) {
			if merr := l.markProcessed(path); merr != nil {
				return errors.Join(err, merr)
			}
		}
		return err
	}
	for _, u := range plan.Unresolved {
		fmt.Fprintf(l.errOut, "warning: %s: ticket %s not imported\n", filepath.Base(path), u)
	}
	fmt.Fprintf(l.out, "Imported %d tickets (%d splits) from %s, %d already booked\n",
		plan.Tickets, len(plan.Splits), filepath.Base(path), len(plan.Existing))
	return l.markProcessed(path)
}

func (l *loadImporter) markProcessed(path string) error {
	dir := l.s.cfg.Elevator.ProcessedDir
	if dir == "" {
		return nil
	}
	dst, err := importer.MarkProcessed(path, l.s.resolve(dir))
	if err != nil {
		return err
	}
	l.s.log.Debug("moved load file", "to", dst)
	return nil
}

func newImportCommand(g *globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import elevator load files into the book",
		Long: "Import elevator load files into the book. With no arguments every " +
			"matching CSV in the elevator watch dir is imported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := newLoadImporter(s, cmd, format)
			if err != nil {
				return err
			}

			paths := args
			if len(paths) == 0 {
				files, err := importer.Scan(s.resolve(s.cfg.Elevator.WatchDir), s.cfg.Elevator.FileMatchPattern)
				if err != nil {
					return err
				}
				for _, f := range files {
					paths = append(paths, f.Path)
				}
				if len(paths) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No load files to import")
					return nil
				}
			}

			var errs []error
			for _, p := range paths {
				if err := l.importFile(cmd.Context(), p); err != nil {
					if errors.Is(err, importer.ErrInvalidLoads) {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipping %s: %v\n", filepath.Base(p), err)
						continue
					}
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringVar(&format, "format", defaultFormat, "load file format")

	return cmd
}

func newWatchCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Import elevator load files as they are downloaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := newLoadImporter(s, cmd, defaultFormat)
			if err != nil {
				return err
			}

			w := watcher.New(watcher.Options{
				Dir:    s.resolve(s.cfg.Elevator.WatchDir),
				Prefix: s.cfg.Elevator.FileMatchPattern,
				Logger: s.log,
			}, l.importFile)
			if err := w.Open(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return w.Run(ctx)
		},
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
