package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/undokit/internal/config"
	"github.com/dshills/undokit/internal/history"
	"github.com/dshills/undokit/internal/jsondoc"
	"github.com/dshills/undokit/internal/logging"
	"github.com/dshills/undokit/internal/script"
)

// runOptions holds the flags of the run command.
type runOptions struct {
	docPath     string
	configPath  string
	outPath     string
	logLevel    string
	pretty      bool
	showHistory bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "undokit",
		Short:         "Run undoable edit scripts against JSON documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "undokit %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run --doc file.json [flags] script.lua",
		Short: "Run a Lua script against a JSON document",
		Long: `Run loads a JSON document, runs the script with the undo module bound to it
and writes the resulting document to --out, or to stdout when --out is empty.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.docPath, "doc", "", "JSON document to edit")
	f.StringVarP(&opts.configPath, "config", "c", "", "Settings file (.toml, .yaml)")
	f.StringVarP(&opts.outPath, "out", "o", "", "Write the result here instead of stdout")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.BoolVar(&opts.pretty, "pretty", false, "Indent the written document")
	f.BoolVar(&opts.showHistory, "history", false, "Print the undo history after the script")
	_ = cmd.MarkFlagRequired("doc")
	return cmd
}

func loadSettings(opts runOptions) (config.Settings, error) {
	s, err := config.Load(opts.configPath)
	if err != nil {
		return s, err
	}
	if err := s.ApplyEnv(config.EnvPrefix); err != nil {
		return s, err
	}
	if opts.logLevel != "" {
		s.LogLevel = opts.logLevel
		if err := s.Validate(); err != nil {
			return s, err
		}
	}
	return s, nil
}

func runScript(cmd *cobra.Command, opts runOptions, scriptPath string) error {
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}
	settings.Apply()

	log, err := logging.New(settings.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	data, err := os.ReadFile(opts.docPath)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	doc, err := jsondoc.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.docPath, err)
	}

	ctrl := history.NewController(settings.ControllerOptions(log)...)
	if opts.configPath != "" {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if err := config.Follow(ctx, opts.configPath, ctrl, log); err != nil {
			log.Warn("config reload disabled", zap.String("path", opts.configPath), zap.Error(err))
		}
	}
	eng := script.New(ctrl, doc,
		script.WithLogger(log),
		script.WithOutput(cmd.ErrOrStderr()),
	)
	defer eng.Close()

	if err := eng.RunFile(scriptPath); err != nil {
		return err
	}
	log.Info("script finished",
		zap.String("script", scriptPath),
		zap.Int("undo", ctrl.UndoCount()),
		zap.Int("redo", ctrl.RedoCount()))

	if opts.showHistory {
		for i, info := range ctrl.UndoInfo() {
			fmt.Fprintf(cmd.ErrOrStderr(), "%3d  %s  %s\n", i+1, info.Timestamp.Format("15:04:05.000"), info.Label)
		}
	}

	out := doc.Bytes()
	if opts.pretty {
		out = doc.Pretty()
	}
	if opts.outPath == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(opts.outPath, out, 0o644); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}
