package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	coreapp "diagrammer/internal/core/app"
	"diagrammer/internal/core/config"
	domainerrors "diagrammer/internal/core/errors"
	"diagrammer/internal/shared/observability"
	"diagrammer/internal/ui/report"
)

func Run(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Printf("diagrammer v%s\n", versionString)
		return 0
	}

	if err := validateOptions(&opts); err != nil {
		fmt.Fprintln(os.Stderr, domainerrors.UserMessage(err))
		return 2
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	config.LoadEnvFiles(filepath.Join(cwd, ".env"))

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	slog.Debug("config loaded", "path", cfgPath, "backend", cfg.Backend.URL)

	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		slog.Error("failed to resolve runtime paths", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := startTracing(ctx, cfg)
	defer shutdownTracing()

	a, err := coreapp.New(ctx, cfg, paths, coreapp.Dependencies{})
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer a.Close()

	stopServer := startObservabilityServer(ctx, cfg, a)
	defer stopServer()

	if opts.history {
		return printHistory(os.Stdout, a, historyLimit(opts, cfg))
	}

	if opts.ui {
		if err := runUI(ctx, a, opts); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	}

	if err := loadSource(ctx, a, opts); err != nil {
		fmt.Fprintln(os.Stderr, domainerrors.UserMessage(err))
		slog.Debug("load failed", "error", err)
		return 1
	}
	if code := present(ctx, os.Stdout, a, opts); code != 0 {
		return code
	}

	if !opts.watch {
		return 0
	}
	if err := a.StartWatcher(ctx, []string{opts.file}, reselectAfterReload(ctx, a, opts.module, func(err error) {
		if err == nil {
			printFrame(os.Stdout, a, opts)
		}
	})); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}
	slog.Info("watching for changes", "file", opts.file)
	<-ctx.Done()
	return 0
}

// loadSource hands the analysis named by opts to the view. No source is a
// no-op.
func loadSource(ctx context.Context, a *coreapp.App, opts cliOptions) error {
	switch {
	case opts.url != "":
		return a.Analyze(ctx, opts.url)
	case opts.sha != "":
		return a.LoadSHA(ctx, opts.sha)
	case opts.file != "":
		return a.LoadFile(ctx, opts.file)
	}
	return nil
}

// reselectAfterReload restores module after a successful reload, which
// resets the view to all modules, and then calls next.
func reselectAfterReload(ctx context.Context, a *coreapp.App, module string, next func(error)) func(error) {
	return func(err error) {
		if err == nil && module != "" {
			if selErr := a.Select(ctx, module); selErr != nil {
				slog.Warn("module selection failed after reload", "module", module, "error", selErr)
				err = selErr
			}
		}
		next(err)
	}
}

// present applies the module selection and export flags, then prints the
// result.
func present(ctx context.Context, w io.Writer, a *coreapp.App, opts cliOptions) int {
	if opts.module != "" {
		if err := a.Select(ctx, opts.module); err != nil {
			fmt.Fprintln(os.Stderr, domainerrors.UserMessage(err))
			return 1
		}
	}
	if opts.exportAll {
		n, err := a.ExportAll(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, domainerrors.UserMessage(err))
			return 1
		}
		fmt.Fprintf(w, "Exported %d diagram sets to %s\n", n, a.Paths.DiagramsDir)
	}
	printFrame(w, a, opts)
	return 0
}

func printFrame(w io.Writer, a *coreapp.App, opts cliOptions) {
	result := a.Controller.Result()
	if result == nil {
		return
	}
	if opts.summary {
		fmt.Fprintln(w, report.BuildSummary(result).Markdown())
	}
	selection := a.Controller.Selection()
	if selection == "" {
		selection = "all modules"
	}
	dir := report.NewFileRenderer(a.Paths.DiagramsDir).DirFor(a.Controller.Selection())
	fmt.Fprintf(w, "Diagrams for %s written to %s\n", selection, dir)
}

func printHistory(w io.Writer, a *coreapp.App, limit int) int {
	entries, err := a.History(limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, domainerrors.UserMessage(err))
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No cached analyses.")
		return 0
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHA\tREPOSITORY\tFETCHED\tMODULES\tFILES\tURL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			e.SHA,
			e.RepoName,
			e.FetchedAt.Local().Format("2006-01-02 15:04"),
			e.ModuleCount,
			e.FileCount,
			e.RepoURL,
		)
	}
	_ = tw.Flush()
	return 0
}

func historyLimit(opts cliOptions, cfg *config.Config) int {
	if opts.historyN > 0 {
		return opts.historyN
	}
	return cfg.Cache.Recent
}

func runUI(ctx context.Context, a *coreapp.App, opts cliOptions) error {
	prog := NewProgram(a.Controller, a.Analyze)

	go func() {
		<-ctx.Done()
		prog.Quit()
	}()

	if opts.url != "" || opts.sha != "" || opts.file != "" {
		go func() {
			err := loadSource(ctx, a, opts)
			if err == nil && opts.module != "" {
				err = a.Select(ctx, opts.module)
			}
			prog.Refresh(err)
		}()
	}

	if opts.watch {
		if err := a.StartWatcher(ctx, []string{opts.file}, reselectAfterReload(ctx, a, opts.module, prog.Refresh)); err != nil {
			return err
		}
	}
	return prog.Run()
}

func loadConfig(path, cwd string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	for _, candidate := range discoverDefaultConfig(cwd) {
		cfg, err := config.Load(candidate)
		if err == nil {
			return cfg, candidate, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", err
		}
	}

	// Every setting has a default, so running without a file is fine.
	cfg := config.DefaultConfig()
	config.ApplyEnvOverrides(cfg)
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, "", errs[0]
	}
	return cfg, "", nil
}

func discoverDefaultConfig(cwd string) []string {
	return []string{
		filepath.Clean(filepath.Join(cwd, config.DefaultFileName)),
		filepath.Clean(filepath.Join(cwd, "data", "config", config.DefaultFileName)),
	}
}

func startTracing(ctx context.Context, cfg *config.Config) func() {
	obs := cfg.Observability
	if !obs.Enabled || !obs.EnableTracing {
		return func() {}
	}
	shutdown, err := observability.SetupTracing(ctx, obs.OTLPEndpoint, obs.ServiceName)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		return func() {}
	}
	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}
}

func startObservabilityServer(ctx context.Context, cfg *config.Config, a *coreapp.App) func() {
	obs := cfg.Observability
	if !obs.Enabled {
		return func() {}
	}
	health := coreapp.NewHealthService(a)
	srv := observability.NewServer(fmt.Sprintf(":%d", obs.Port), health.Check, obs.EnableMetrics)
	if err := srv.Start(ctx); err != nil {
		slog.Warn("observability server not started", "error", err)
		return func() {}
	}
	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(sctx)
	}
}

func configureLogging(uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	// Stdout carries the summary, so logs go to stderr.
	output := io.Writer(os.Stderr)
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "diagrammer", "diagrammer.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "diagrammer", "diagrammer.log")
	}

	return "diagrammer.log"
}
