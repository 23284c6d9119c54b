package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/agent"
	"github.com/effective-security/mailagent/internal/config"
	"github.com/effective-security/mailagent/llmfactory"
	"github.com/effective-security/mailagent/mcp"
	"github.com/effective-security/mailagent/msgraph"
	"github.com/effective-security/mailagent/store"
	"github.com/effective-security/mailagent/tools"
	"github.com/effective-security/mailagent/webhook"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		cfgFile string
		addr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfgFile, addr)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "cfg", "mailagent.yaml", "configuration file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the config")
	return cmd
}

func runServe(ctx context.Context, cfgFile, addr string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return errors.WithMessagef(err, "failed to load config: %s", cfgFile)
	}
	if addr != "" {
		cfg.Service.Addr = addr
	}
	if cfg.Service.Addr == "" {
		cfg.Service.Addr = ":8080"
	}

	llm, err := llmfactory.New(&cfg.LLM).DefaultModel()
	if err != nil {
		return errors.WithMessage(err, "failed to create model")
	}

	registry, err := mcp.NewRegistry(ctx, cfg.Registry,
		mcp.WithDescriptorCache(store.New(&cfg.Cache)))
	if err != nil {
		return errors.WithMessage(err, "failed to create tool registry")
	}

	var locals []tools.ITool
	if cfg.Graph != nil {
		mailTool, err := msgraph.NewMailTool(msgraph.NewClient(*cfg.Graph))
		if err != nil {
			return errors.WithMessage(err, "failed to create mail tool")
		}
		locals = append(locals, mailTool)
	}

	runner := agent.New(llm, registry, cfg.Agent,
		agent.WithCallback(agent.NewLoggerCallback(logger)),
		agent.WithLocalTools(locals...))

	server := webhook.NewServer(cfg.Service, runner)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.KV(xlog.INFO,
			"status", "listening",
			"addr", cfg.Service.Addr,
			"model", llm.GetName(),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.KV(xlog.INFO, "status", "shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.WithMessage(err, "failed to shut down")
		}
	}
	return nil
}
