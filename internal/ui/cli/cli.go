package cli

import (
	"flag"
	"fmt"
	"strings"

	domainerrors "diagrammer/internal/core/errors"
)

const versionString = "0.1.0"
const defaultConfigPath = "./diagrammer.toml"

type cliOptions struct {
	configPath string
	url        string
	sha        string
	file       string
	module     string
	exportAll  bool
	history    bool
	historyN   int
	ui         bool
	watch      bool
	summary    bool
	verbose    bool
	version    bool
	args       []string

	urlSet bool
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("diagrammer", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.StringVar(&opts.url, "url", "", "Analyze a GitHub repository URL")
	fs.StringVar(&opts.sha, "sha", "", "Load a cached analysis by commit SHA")
	fs.StringVar(&opts.file, "file", "", "Load an analysis result from a JSON file")
	fs.StringVar(&opts.module, "module", "", "Scope the diagrams to one module")
	fs.BoolVar(&opts.exportAll, "export-all", false, "Render diagrams for every module")
	fs.BoolVar(&opts.history, "history", false, "List locally cached analyses and exit")
	fs.IntVar(&opts.historyN, "history-limit", 0, "Maximum entries printed by --history (default from config)")
	fs.BoolVar(&opts.ui, "ui", false, "Enable terminal UI mode")
	fs.BoolVar(&opts.watch, "watch", false, "Reload --file whenever it changes")
	fs.BoolVar(&opts.summary, "summary", true, "Print the analysis summary")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "url" {
			opts.urlSet = true
		}
	})

	opts.args = fs.Args()
	return opts, nil
}

// validateOptions rejects flag combinations that cannot run together. A
// single positional argument is taken as the repository URL.
func validateOptions(opts *cliOptions) error {
	if len(opts.args) > 1 {
		return fmt.Errorf("at most one positional repository URL is accepted")
	}
	if len(opts.args) == 1 {
		if opts.urlSet {
			return fmt.Errorf("repository URL given both as --url and as an argument")
		}
		opts.url = opts.args[0]
		opts.urlSet = true
	}
	opts.url = strings.TrimSpace(opts.url)
	opts.sha = strings.TrimSpace(opts.sha)

	if opts.urlSet && opts.url == "" {
		return domainerrors.New(domainerrors.CodeValidationError, emptyURLMessage)
	}

	sources := 0
	for _, set := range []bool{opts.url != "", opts.sha != "", opts.file != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return fmt.Errorf("--url, --sha, and --file cannot be combined")
	}

	if opts.history {
		if sources > 0 || opts.ui || opts.watch || opts.exportAll || opts.module != "" {
			return fmt.Errorf("--history cannot be combined with other modes")
		}
		return nil
	}
	if opts.watch && opts.file == "" {
		return fmt.Errorf("--watch requires --file")
	}
	if sources == 0 && !opts.ui {
		return fmt.Errorf("one of --url, --sha, --file, --history, or --ui is required")
	}
	if opts.exportAll && sources == 0 {
		return fmt.Errorf("--export-all requires an analysis source")
	}
	if opts.module != "" && sources == 0 {
		return fmt.Errorf("--module requires an analysis source")
	}
	return nil
}
