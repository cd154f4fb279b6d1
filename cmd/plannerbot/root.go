package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type serveFlags struct {
	port        int
	logLevel    string
	llmProvider string
}

func newRootCommand() *cobra.Command {
	flags := &serveFlags{}
	root := &cobra.Command{
		Use:           "plannerbot",
		Short:         "LINE bot that files messages into Google Calendar and Google Tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}
	bindServeFlags(root, flags)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}
	bindServeFlags(serve, flags)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "plannerbot %s (commit %s, built %s)\n", version, commit, date)
		},
	}

	root.AddCommand(serve, versionCmd)
	return root
}

func bindServeFlags(cmd *cobra.Command, flags *serveFlags) {
	cmd.Flags().IntVar(&flags.port, "port", 0, "HTTP listen port (overrides PORT)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides LOG_LEVEL)")
	cmd.Flags().StringVar(&flags.llmProvider, "llm-provider", "", "LLM backend: openai|gemini (overrides LLM_PROVIDER)")
}

func runServe(cmd *cobra.Command, flags *serveFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, newEnvLoader(), flagOverrides(cmd, flags))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()
	return app.run(ctx)
}

