package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/killallgit/cognilink/pkg/llm"
	"github.com/killallgit/cognilink/pkg/llm/ollama"
	"github.com/killallgit/cognilink/pkg/logger"
	"github.com/killallgit/cognilink/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve avatars and conversations over HTTP. Replies stream as Server-Sent Events
from POST /api/avatars/{id}/messages.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		srv := server.New(rt.app,
			server.WithLogger(logger.Zap()),
			server.WithRateLimit(rt.cfg.Server.RateLimit, rt.cfg.Server.Burst),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, viper.GetString("server.addr"))
		})
		g.Go(func() error {
			reportOllamaHealth(gctx, rt.app.Provider())
			return nil
		})
		return g.Wait()
	},
}

// reportOllamaHealth logs whether a local Ollama provider can answer. It never fails the server.
func reportOllamaHealth(ctx context.Context, provider llm.Provider) {
	p, ok := provider.(*ollama.Provider)
	if !ok {
		return
	}
	status, err := p.CheckHealth(ctx)
	if err != nil || !status.Available {
		if err == nil {
			err = status.Error
		}
		logger.Zap().Warn("Ollama is not reachable", zap.Error(err))
		return
	}
	if !status.HasModel(p.Model()) {
		logger.Zap().Warn("Ollama model is not pulled", zap.String("model", p.Model()))
		return
	}
	logger.Zap().Info("Ollama is ready", zap.String("model", p.Model()))
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}
