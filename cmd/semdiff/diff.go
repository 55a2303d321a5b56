package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jward/semdiff"
	"github.com/jward/semdiff/internal/parser"
	"github.com/jward/semdiff/internal/store"
	"github.com/jward/semdiff/internal/watcher"
)

var (
	flagFilter  string
	flagNoCache bool
	flagScheme  string
)

var diffCmd = &cobra.Command{
	Use:   "diff <original> <modified>",
	Short: "Report declaration changes between two project directories",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

var watchCmd = &cobra.Command{
	Use:   "watch <original> <modified>",
	Short: "Recompute the diff whenever the modified project changes",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatch,
}

func init() {
	for _, c := range []*cobra.Command{diffCmd, watchCmd} {
		c.Flags().StringVar(&flagFilter, "filter", "", "Risor expression; records for which it is falsy are dropped")
		c.Flags().StringVar(&flagScheme, "scheme", "", "URI scheme for reported documents (default: uri_scheme from config)")
		c.Flags().BoolVar(&flagNoCache, "no-cache", false, "recompute even when an identical run is in the history")
	}
}

// newEngine builds an engine from config and flags. Flags win over config.
func newEngine(s *settings, st *store.Store) (*semdiff.Engine, error) {
	scheme := s.cfg.URIScheme
	if flagScheme != "" {
		scheme = flagScheme
	}
	filter := s.cfg.Filter
	if flagFilter != "" {
		filter = flagFilter
	}
	opts := []semdiff.Option{
		semdiff.WithLogger(s.logger),
		semdiff.WithScheme(scheme),
		semdiff.WithCache(!flagNoCache),
	}
	if filter != "" {
		opts = append(opts, semdiff.WithFilter(filter))
	}
	if st != nil {
		opts = append(opts, semdiff.WithStore(st))
	}
	return semdiff.New(opts...)
}

func loadProject(ctx context.Context, s *settings, root string) (*semdiff.Project, error) {
	return semdiff.LoadProject(ctx, root,
		semdiff.WithIgnore(s.cfg.Ignore...),
		semdiff.WithLoadLogger(s.logger),
	)
}

// diffSession holds what one diff or watch invocation keeps open.
type diffSession struct {
	settings *settings
	store    *store.Store
	engine   *semdiff.Engine
}

func openSession(cmd *cobra.Command) (*diffSession, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	st, err := s.openStore()
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(s, st)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, err
	}
	return &diffSession{settings: s, store: st, engine: engine}, nil
}

func (d *diffSession) Close() {
	d.engine.Close()
	if d.store != nil {
		d.store.Close()
	}
}

func (d *diffSession) compute(ctx context.Context, original *semdiff.Project, modifiedRoot string) (*semdiff.Result, error) {
	modified, err := loadProject(ctx, d.settings, modifiedRoot)
	if err != nil {
		return nil, err
	}
	return d.engine.ComputeAsync(ctx, original, modified).Wait(ctx)
}

func runDiff(cmd *cobra.Command, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	sess, err := openSession(cmd)
	if err != nil {
		return outputError(out, errOut, "diff", err)
	}
	defer sess.Close()

	ctx := cmd.Context()
	original, err := loadProject(ctx, sess.settings, args[0])
	if err != nil {
		return outputError(out, errOut, "diff", err)
	}
	res, err := sess.compute(ctx, original, args[1])
	if err != nil {
		return outputError(out, errOut, "diff", err)
	}
	return outputResult(out, CLIResult{Command: "diff", Results: res})
}

func runWatch(cmd *cobra.Command, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	sess, err := openSession(cmd)
	if err != nil {
		return outputError(out, errOut, "watch", err)
	}
	defer sess.Close()
	logger := sess.settings.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	original, err := loadProject(ctx, sess.settings, args[0])
	if err != nil {
		return outputError(out, errOut, "watch", err)
	}

	report := func() {
		res, err := sess.compute(ctx, original, args[1])
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("diff failed", "error", err)
			}
			return
		}
		if err := outputResult(out, CLIResult{Command: "watch", Results: res}); err != nil {
			logger.Error("writing result", "error", err)
		}
	}
	report()

	skip, err := semdiff.SkipDirFunc(args[1], sess.settings.cfg.Ignore)
	if err != nil {
		return outputError(out, errOut, "watch", err)
	}
	w, err := watcher.New(args[1], parser.Extensions(),
		watcher.WithDebounce(sess.settings.cfg.Debounce()),
		watcher.WithLogger(logger),
		watcher.WithSkipDir(skip),
	)
	if err != nil {
		return outputError(out, errOut, "watch", fmt.Errorf("watching %s: %w", args[1], err))
	}
	w.Start(ctx, func(files []string) {
		logger.Info("change detected", "files", len(files))
		report()
	})
	logger.Info("watching", "root", args[1])

	<-ctx.Done()
	return w.Stop()
}
