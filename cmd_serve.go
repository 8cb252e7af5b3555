package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"FlashChat/global/config"
	"FlashChat/logger"
	"FlashChat/service/nacos"
	"FlashChat/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var advertiseIP string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket server and the expiry sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, advertiseIP)
		},
	}
	cmd.Flags().StringVar(&advertiseIP, "advertise-ip", "127.0.0.1", "IP registered in nacos")
	return cmd
}

func serve(ctx context.Context, advertiseIP string) error {
	loader, err := loadConfig()
	if err != nil {
		return err
	}
	defer loader.Close()

	cfg := loader.Config()
	if cfg.Nacos.Enabled {
		src, err := nacos.NewConfigClient(cfg.Nacos)
		if err != nil {
			return err
		}
		if err := loader.WatchRemote(src); err != nil {
			return err
		}
		cfg = loader.Config()
	}
	loader.OnChange(func(c config.AppConfig) {
		if err := logger.Init(c.Log.Level); err != nil {
			logger.Warn("log level not applied", zap.Error(err))
		}
	})
	if cfg.JWT.Secret == "" {
		return errs.ErrValidation.WrapMsg("jwt.secret is required to serve")
	}
	gin.SetMode(cfg.Server.Mode)

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}

	hs := &http.Server{Addr: cfg.Server.Addr, Handler: app.Handler().Engine()}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.Addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go app.sweeper.Run(sweepCtx)

	var reg *nacos.Registry
	if cfg.Nacos.Enabled && cfg.Nacos.Register {
		var rerr error
		if reg, rerr = register(cfg, advertiseIP); rerr != nil {
			logger.Warn("nacos register failed", zap.Error(rerr))
		}
	}

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	logger.Info("shutting down")

	if reg != nil {
		if derr := reg.Deregister(); derr != nil {
			logger.Warn("nacos deregister failed", zap.Error(derr))
		}
	}
	stopSweep()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// 先关 ws 连接，否则 Shutdown 会一直等升级后的连接
	app.ws.Shutdown()
	if serr := hs.Shutdown(sctx); serr != nil {
		logger.Warn("http shutdown", zap.Error(serr))
	}
	app.Close(sctx)
	return err
}

func register(cfg config.AppConfig, ip string) (*nacos.Registry, error) {
	_, portStr, err := net.SplitHostPort(cfg.Server.Addr)
	if err != nil {
		return nil, errs.ErrValidation.WrapMsg("server.addr", "addr", cfg.Server.Addr)
	}
	port, err := strconv.ParseUint(portStr, 10, 64)
	if err != nil {
		return nil, errs.ErrValidation.WrapMsg("server.addr port", "addr", cfg.Server.Addr)
	}
	naming, err := nacos.NewNamingClient(cfg.Nacos)
	if err != nil {
		return nil, err
	}
	reg := nacos.NewRegistry(naming, cfg.Nacos.ServiceName, ip, port)
	if cfg.Nacos.Group != "" {
		reg.Group = cfg.Nacos.Group
	}
	if err := reg.Register(); err != nil {
		return nil, err
	}
	return reg, nil
}
