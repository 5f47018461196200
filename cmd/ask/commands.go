package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hackrx-go/internal/app"
	"hackrx-go/internal/config"
	"hackrx-go/internal/model"
	"hackrx-go/pkg/log"
	"hackrx-go/pkg/token"

	"github.com/spf13/cobra"
)

type askOptions struct {
	configPath string
	document   string
	questions  []string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask --doc <url|path> -q <question> [-q <question>...]",
		Short: "Answer questions about a policy document",
		Long: `Ingest a document and answer questions about it without starting the HTTP server.

Examples:
  ask --doc ./policy.pdf -q "What is the grace period?"
  ask --config configs/config.yaml --doc https://example.com/policy.pdf -q "Is maternity covered?" -q "What is the waiting period?"`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAsk(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to config.yaml (defaults and HACKRX_* env only when empty)")
	cmd.Flags().StringVar(&opts.document, "doc", "", "Document URL or local file path")
	cmd.Flags().StringArrayVarP(&opts.questions, "question", "q", nil, "Question to answer (repeatable)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	_ = cmd.MarkFlagRequired("doc")

	cmd.AddCommand(newTokenCmd())
	return cmd
}

func runAsk(cmd *cobra.Command, opts *askOptions) error {
	if len(opts.questions) == 0 {
		return errors.New("at least one --question is required")
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	log.Init(opts.logLevel, "console", "")
	defer log.Sync()

	ctx := cmd.Context()
	if cfg.Server.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Server.RequestTimeout)
		defer cancel()
	}

	a, err := app.New(ctx, cfg, app.WithLocalFiles())
	if err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}
	defer a.Close()

	answers, err := a.QA.Run(ctx, model.RunRequest{Documents: opts.document, Questions: opts.questions})
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(model.RunResponse{Answers: answers}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
	return nil
}

func newTokenCmd() *cobra.Command {
	var (
		configPath string
		subject    string
		ttl        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for auth.mode=jwt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.Mode != "jwt" {
				return fmt.Errorf("auth.mode is %q, tokens are only issued for jwt", cfg.Auth.Mode)
			}
			signed, err := token.NewJWTManager(cfg.Auth.JWTSecret, ttl).GenerateToken(subject)
			if err != nil {
				return fmt.Errorf("signing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config.yaml")
	cmd.Flags().StringVar(&subject, "subject", "hackrx-client", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
