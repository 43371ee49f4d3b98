package commands

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/farmbooks-dev/farmbooks/internal/accounts"
	"github.com/farmbooks-dev/farmbooks/internal/buildinfo"
	"github.com/farmbooks-dev/farmbooks/internal/config"
	"github.com/farmbooks-dev/farmbooks/internal/ledger"
)

// ConfigFile is the default configuration file name.
const ConfigFile = "farmbooks.yaml"

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	book       string
	year       int
	verbose    bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:     "farmbooks",
		Short:   "Farm accounting reports from GnuCash books",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", ConfigFile, "configuration file")
	flags.StringVar(&g.book, "book", config.BookBusiness, "book to read (business or personal)")
	flags.IntVar(&g.year, "year", time.Now().Year(), "report year")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "log debug output")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newReportCommand(g))
	rootCmd.AddCommand(newImportCommand(g))
	rootCmd.AddCommand(newWatchCommand(g))

	return rootCmd
}

// session is the loaded configuration and open book for one command run.
type session struct {
	cfg   *config.Config
	dir   string // relative paths in cfg are resolved against dir
	store *ledger.Store
	log   *slog.Logger
}

func (g *globals) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// open loads the configuration and opens the selected book.
func (g *globals) open(cmd *cobra.Command) (*session, error) {
	log := g.logger(cmd)
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, dir: filepath.Dir(g.configPath), log: log}
	path, err := cfg.BookPath(g.book)
	if err != nil {
		return nil, err
	}
	path = s.resolve(path)
	if s.store, err = ledger.Open(path); err != nil {
		return nil, err
	}
	log.Debug("opened book", "book", g.book, "path", path)
	return s, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

func (s *session) accountOptions() accounts.Options {
	return accounts.Options{
		Depth:             s.cfg.Report.Depth,
		Descriptors:       s.cfg.Report.Descriptors,
		DefaultDescriptor: s.cfg.Report.DefaultDescriptor,
		Logger:            s.log,
	}
}

// resolve expands ~ and anchors relative paths at the config file's directory.
func (s *session) resolve(p string) string {
	p = config.ExpandHome(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.dir, p)
}

func (s *session) dataDir() string   { return s.resolve(s.cfg.Report.DataDir) }
func (s *session) exportDir() string { return s.resolve(s.cfg.Report.ExportDir) }
