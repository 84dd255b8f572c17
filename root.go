package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/imqcam/girder-upload/internal/config"
)

// skipConfigAnnotation marks commands that run without the resolved config.
const skipConfigAnnotation = "skipConfig"

// dotEnvFile is read from the working directory before config resolution.
const dotEnvFile = ".env"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath     string
	flagAPIURL         string
	flagAPIKey         string
	flagRootFolderID   string
	flagCollectionName string
	flagRootFolderPath string
	flagLogFormat      string
	flagJSON           bool
	flagVerbose        bool
	flagQuiet          bool
)

// CLIFlags is the subset of global flags commands read after parsing.
type CLIFlags struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext carries everything a command needs once the root pre-run has
// finished. Cfg is nil for commands annotated with skipConfigAnnotation.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

func cliContextFrom(ctx context.Context) *CLIContext {
	cc, _ := ctx.Value(cliContextKey{}).(*CLIContext)

	return cc
}

// mustCLIContext returns the CLIContext stored by the root pre-run. A missing
// context is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context")
	}

	return cc
}

// newRootCmd builds the root command with all subcommands registered.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "girder-upload",
		Short: "Upload files to a Girder data management server",
		Long: `Upload local files into a Girder collection or folder, creating the
folder path as needed, attaching JSON metadata, and verifying each upload by
re-hashing the stored content.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupCLIContext(cmd)
		},
	}

	cmd.SetGlobalNormalizationFunc(underscoreToDash)

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfigPath, "config", "", "config file path")
	pf.StringVar(&flagAPIURL, "api-url", config.DefaultAPIURL, "Girder API root URL")
	pf.StringVar(&flagAPIKey, "api-key", "", "Girder API key (default $"+config.EnvAPIKey+")")
	pf.StringVar(&flagRootFolderID, "root-folder-id", "", "ID of the destination root folder (supersedes collection options)")
	pf.StringVar(&flagCollectionName, "collection-name", "", "destination collection (default \""+config.DefaultCollectionName+"\")")
	pf.StringVar(&flagRootFolderPath, "root-folder-path", "", "folder path inside the collection")
	pf.StringVar(&flagLogFormat, "log-format", "", "log handler: auto, text, json or color")
	pf.BoolVar(&flagJSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "only log errors and suppress progress")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newFindCmd())
	cmd.AddCommand(newRmdirCmd())
	cmd.AddCommand(newHashCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// underscoreToDash accepts --root_folder_id as a spelling of --root-folder-id.
func underscoreToDash(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// setupCLIContext resolves config (unless the command opts out), builds the
// logger, and stores a CLIContext on the command's context.
func setupCLIContext(cmd *cobra.Command) error {
	cc := &CLIContext{
		Flags: CLIFlags{
			ConfigPath: flagConfigPath,
			JSON:       flagJSON,
			Verbose:    flagVerbose,
			Quiet:      flagQuiet,
		},
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}

	if cmd.Annotations[skipConfigAnnotation] != "true" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		cc.Cfg = cfg
	}

	cc.Logger = buildLogger(cc.Cfg, cc.Stderr)
	slog.SetDefault(cc.Logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(withCLIContext(ctx, cc))

	return nil
}

// loadConfig resolves the effective configuration. Only flags the user
// actually set take part in the override chain.
func loadConfig(cmd *cobra.Command) (*config.Resolved, error) {
	if err := config.LoadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}

	cli := config.CLIOverrides{ConfigPath: flagConfigPath}
	flags := cmd.Flags()

	changed := func(name string, v string) *string {
		if flags.Changed(name) {
			return &v
		}

		return nil
	}

	cli.APIURL = changed("api-url", flagAPIURL)
	cli.APIKey = changed("api-key", flagAPIKey)
	cli.RootFolderID = changed("root-folder-id", flagRootFolderID)
	cli.CollectionName = changed("collection-name", flagCollectionName)
	cli.RootFolderPath = changed("root-folder-path", flagRootFolderPath)
	cli.LogFormat = changed("log-format", flagLogFormat)

	if flags.Lookup("journal") != nil && flags.Changed("journal") {
		enabled, err := flags.GetBool("journal")
		if err != nil {
			return nil, err
		}

		cli.Journal = &enabled
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return resolved, nil
}

// buildLogger creates the process logger. The config level is the baseline;
// --verbose and --quiet override it.
func buildLogger(cfg *config.Resolved, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = cfg.LogFormat
	} else if flagLogFormat != "" {
		format = flagLogFormat
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(newLogHandler(w, format, level))
}

func newLogHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "json":
		return slog.NewJSONHandler(w, opts)
	case "text":
		return slog.NewTextHandler(w, opts)
	case "color":
		return tint.NewHandler(w, &tint.Options{Level: level})
	default:
		if isTerminal(w) {
			return tint.NewHandler(w, &tint.Options{Level: level})
		}

		return slog.NewTextHandler(w, opts)
	}
}

// isTerminal reports whether w is a file attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
