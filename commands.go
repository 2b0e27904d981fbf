package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sitepilot/config"
	"sitepilot/document"
	"sitepilot/generator"
	"sitepilot/publisher"
	"sitepilot/server"
	"sitepilot/updater"
)

type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "sitepilot",
		Short:         "Rewrite a static page with an AI model and publish it with git",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if flags.verbose {
				logger.SetLevel(logger.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "config/config.json", "path to config file (.json or .yaml)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(newServeCmd(flags), newUpdateCmd(flags))
	return root
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the control panel and update endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ServerAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "http listen address (overrides config.server_addr)")
	return cmd
}

func newUpdateCmd(flags *rootFlags) *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Apply one change request without starting the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			svc, _, err := buildUpdater(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			res, err := svc.Apply(cmd.Context(), prompt)
			if err != nil {
				var pubErr *updater.PublishError
				if errors.As(err, &pubErr) {
					fmt.Fprintln(cmd.ErrOrStderr(), pubErr.Details())
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			fmt.Fprint(cmd.OutOrStdout(), res.GitOutput)
			return nil
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "change request")
	return cmd
}

func buildUpdater(ctx context.Context, cfg config.Config) (*updater.Service, *document.Store, error) {
	llm, err := generator.NewLLM(ctx, generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, nil, err
	}
	agent, err := generator.NewAgent(llm, cfg.ValidateMarkup)
	if err != nil {
		return nil, nil, err
	}

	store := document.New(cfg.DocumentPath)
	svc, err := updater.New(store, agent, buildPublisher(cfg), updater.Options{
		File:           cfg.DocumentFile(),
		AITimeout:      cfg.AITimeout.Std(),
		PublishTimeout: cfg.PublishTimeout.Std(),
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, store, nil
}

func buildPublisher(cfg config.Config) publisher.Publisher {
	opts := publisher.Options{
		RepoDir:     cfg.RepoDir,
		Remote:      cfg.Git.Remote,
		Branch:      cfg.Git.Branch,
		Push:        cfg.Git.Push,
		AuthorName:  cfg.Git.AuthorName,
		AuthorEmail: cfg.Git.AuthorEmail,
	}
	if cfg.Git.Backend == config.BackendGoGit {
		return publisher.NewGoGit(opts, nil)
	}
	return publisher.NewGitCLI(opts, publisher.ExecRunner{})
}

func serve(ctx context.Context, cfg config.Config) error {
	svc, store, err := buildUpdater(ctx, cfg)
	if err != nil {
		return err
	}
	history := func(ctx context.Context) ([]publisher.Entry, error) {
		return publisher.History(ctx, cfg.RepoDir, cfg.HistoryLimit)
	}
	srv, err := server.New(svc, store, history)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Admin panel listening on %s", cfg.ServerAddr)
		logger.Infof("Live website served at %s/index", cfg.ServerAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
