package main

import (
	"context"

	"FlashChat/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired messages and stories once, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := loadConfig()
			if err != nil {
				return err
			}
			defer loader.Close()

			ctx := cmd.Context()
			app, err := NewApp(ctx, loader.Config())
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			for name, n := range app.sweeper.Once(ctx) {
				logger.Info("sweep done", zap.String("job", name), zap.Int("deleted", n))
				cmd.Printf("%s\t%d\n", name, n)
			}
			return nil
		},
	}
}
