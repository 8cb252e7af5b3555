package main

import (
	"fmt"
	"os"

	"FlashChat/global/config"
	"FlashChat/logger"
	"FlashChat/tools/ids"

	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flashchat",
		Short:         "Ephemeral messages, stories and presence",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	root.AddCommand(newServeCmd(), newSweepCmd(), newTokenCmd())
	return root
}

// loadConfig 读取配置并初始化日志与 ID 节点
func loadConfig() (*config.Loader, error) {
	l, err := config.NewLoader(configPath)
	if err != nil {
		return nil, err
	}
	cfg := l.Config()
	if err := logger.Init(cfg.Log.Level); err != nil {
		return nil, err
	}
	ids.SetNodeID(cfg.Node.ID)
	return l, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
