package cli

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaos-io/yeezyframe/metrics"
	"github.com/chaos-io/yeezyframe/pipeline"
	"github.com/chaos-io/yeezyframe/server"
	"github.com/chaos-io/yeezyframe/util"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port        string
		passthrough bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if port != "" {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			util.Logger.Info("starting yeezyframe server",
				zap.String("version", version),
				zap.String("build_time", buildTime),
				zap.String("git_commit", gitCommit))

			collector := metrics.NewCollector()
			remover, store := newRemover(cmd.Context(), cfg, collector, passthrough)
			defer func() {
				_ = store.Close()
			}()

			gin.SetMode(cfg.Server.Mode)
			p := pipeline.NewFromConfig(cfg, remover, pipeline.WithMetrics(collector))
			return server.New(cfg, p, collector, version).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen address, overrides server.port (e.g. :8080)")
	cmd.Flags().BoolVar(&passthrough, "passthrough", false, "skip background removal")
	return cmd
}
