// Package cli 命令行入口：serve 启动 HTTP 服务，compose 在本地完成一次合成并导出。
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaos-io/yeezyframe/config"
	"github.com/chaos-io/yeezyframe/util"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

// SetVersion 构建时通过 ldflags 注入
func SetVersion(v, commit, built string) {
	version = v
	gitCommit = commit
	buildTime = built
}

// app 子命令共享的配置
type app struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "yeezyframe",
		Short:        "Remove the background of a photo and frame it with the Yeezy overlay",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			util.Sync()
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("yeezyframe %s\ncommit: %s\nbuilt: %s\n", version, gitCommit, buildTime))
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: ./config.yaml when present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newComposeCmd(a))
	return root
}

// Execute 运行命令行
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) init() error {
	var cfg *config.Config
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	} else {
		cfg = config.New()
	}
	if a.verbose {
		cfg.Server.Mode = "debug"
	}

	if err := util.InitLogger(cfg.Server.Mode); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	util.Logger.Debug("config loaded",
		zap.String("path", a.configPath),
		zap.String("mode", cfg.Server.Mode),
		zap.String("version", version))

	a.cfg = cfg
	return nil
}
