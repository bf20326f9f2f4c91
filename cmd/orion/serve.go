package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/orion/internal/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the workbench HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.cfg.Log.Development {
			gin.SetMode(gin.ReleaseMode)
		}

		router := api.SetupRouter(a.workspace, api.RouterConfig{
			APIKey:       a.cfg.Admin.APIKey,
			AllowOrigins: a.cfg.Server.AllowOrigins,
			Logger:       a.logger.Named("http"),
		})

		// analyze may take as long as the backend timeout
		srv := &http.Server{
			Addr:         a.cfg.Address(),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: a.cfg.API.Timeout + 10*time.Second,
			IdleTimeout:  120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("Starting Orion workbench",
				zap.String("address", a.cfg.Address()),
				zap.String("backend", a.cfg.API.BaseURL),
				zap.Bool("ephemeral", ephemeral),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-errCh:
			return err
		}

		a.logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Error("Server forced to shutdown", zap.Error(err))
			return err
		}

		a.logger.Info("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
