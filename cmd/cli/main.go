package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	config "github.com/cochaviz/pwakit/config"
	"github.com/cochaviz/pwakit/internal/logging"
	"github.com/cochaviz/pwakit/internal/register"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "cli"
)

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelInfo)
	slog.SetDefault(logging.NewCLI(os.Stderr, &levelVar))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(&levelVar)
	if err := root.ExecuteContext(ctx); err != nil {
		logger := slog.Default()
		if errors.Is(err, context.Canceled) {
			logger.Warn("command interrupted", "error", err)
			os.Exit(130)
		}
		logger.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(levelVar *slog.LevelVar) *cobra.Command {
	var (
		logLevel   = defaultLogLevel
		logFormat  = defaultLogFormat
		configPath string
	)

	root := &cobra.Command{
		Use:           "pwakit",
		Short:         "Generate service workers and registration scripts for progressive web apps",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "Set log verbosity (debug, info, warning, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", defaultLogFormat, "Set log output format (cli, json)")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path to the pwakit configuration file")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(logLevel)
		if err != nil {
			return err
		}
		mode, err := logging.ParseMode(logFormat)
		if err != nil {
			return err
		}
		if levelVar != nil {
			levelVar.Set(level)
		}
		slog.SetDefault(logging.New(mode, cmd.ErrOrStderr(), levelVar))
		return nil
	}

	configFile := func() string { return configPath }
	root.AddCommand(
		newBuildCommand(configFile),
		newRegisterCommand(configFile),
		newPluginsCommand(configFile),
	)
	return root
}

func newBuildCommand(configPath func() string) *cobra.Command {
	var (
		mode        string
		metadataDir string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Args:  cobra.NoArgs,
		Short: "Generate the service worker described by the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default()
			cmdLogger := logger.With("command", "build")

			output, err := config.BuildServiceWorker(cmd.Context(), configPath(), mode, metadataDir, logger)
			if err != nil {
				cmdLogger.Error("build failed", "error", err)
				return err
			}

			for _, artifact := range output.Artifacts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", artifact.Kind, strings.TrimPrefix(artifact.URI, "file://"))
			}
			cmdLogger.Debug("build completed", "run", output.RunID, "strategy", string(output.Strategy))
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Override the configured mode (production, development)")
	cmd.Flags().StringVar(&metadataDir, "metadata-dir", "", "Directory to record generated artifact metadata")

	return cmd
}

func newRegisterCommand(configPath func() string) *cobra.Command {
	var (
		dev    bool
		source string
		write  bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Args:  cobra.NoArgs,
		Short: "Render the service-worker registration script",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := register.ModeBuild
			if dev {
				mode = register.ModeDev
			}
			cmdLogger := slog.Default().With("command", "register", "template", string(mode)+"/"+source)

			script, artifact, err := config.RenderRegister(configPath(), mode, source, write, slog.Default())
			if err != nil {
				if errors.Is(err, register.ErrTemplateNotFound) {
					variants, _ := register.Variants()
					cmdLogger.Info("available templates", "variants", variantNames(variants))
				}
				return err
			}

			if artifact != nil {
				cmdLogger.Info("registration script written", "uri", artifact.URI)
				return nil
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), script)
			return err
		},
	}

	cmd.Flags().BoolVar(&dev, "dev", false, "Render the development template")
	cmd.Flags().StringVar(&source, "source", register.DefaultSource, "Template variant (register, vanilla)")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write registerSW.js into the output directory instead of stdout")

	return cmd
}

func newPluginsCommand(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Args:  cobra.NoArgs,
		Short: "List host plugins and whether they apply when bundling service-worker source",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := config.ListPlugins(configPath(), slog.Default())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, status := range statuses {
				fmt.Fprintf(w, "%s\t(bundled: %t)\n", status.Name, status.Bundled)
			}
			return w.Flush()
		},
	}
}

func variantNames(variants []register.Variant) []string {
	names := make([]string, len(variants))
	for i, variant := range variants {
		names[i] = variant.String()
	}
	return names
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}
