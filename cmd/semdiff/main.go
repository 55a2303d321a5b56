package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/semdiff/internal/config"
	"github.com/jward/semdiff/internal/store"
)

var (
	flagDB     string
	flagFormat string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "semdiff",
	Short:         "Declaration-level diffs between two versions of a project",
	Long:          "Semdiff parses two snapshots of a project and reports which listeners, functions, types and service members were added, deleted or modified.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "history database path (default: db_path from config, relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")

	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(mcpCmd)
}

// settings is what every command derives from the working directory.
type settings struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
}

// loadSettings reads the configuration of the repository containing the
// working directory and builds a stderr logger at the configured level.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	root := findRepoRoot(cwd)
	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	return &settings{root: root, cfg: cfg, logger: logger}, nil
}

// openStore opens and migrates the history database. It returns nil when
// history is disabled.
func (s *settings) openStore() (*store.Store, error) {
	dbPath := resolveDBPath(s.root, s.cfg)
	if dbPath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", dbPath, err)
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrating history %s: %w", dbPath, err)
	}
	s.logger.Debug("history database", "path", dbPath)
	return st, nil
}

// requireStore is openStore for commands that cannot work without history.
func (s *settings) requireStore() (*store.Store, error) {
	st, err := s.openStore()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("history is disabled: set db_path or pass --db")
	}
	return st, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the config.
func resolveDBPath(repoRoot string, cfg *config.Config) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return cfg.ResolveDBPath(repoRoot)
}
