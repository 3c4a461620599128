package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/auth"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/catalog"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/config"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/otp"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/server"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/session"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/store"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/valuation"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	ServeCmd = &cobra.Command{
		Use:   ServeCmdName,
		Short: ServeCmdShort,
		Long:  ServeCmdLong,
		RunE:  serveCmdFunc,
	}
)

func init() {
	ServeCmd.Flags().String("address", ":8080", "listen address")
	_ = viper.BindPFlag("server.address", ServeCmd.Flags().Lookup("address"))
}

func serveCmdFunc(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := cmd.Context()
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	codes := otp.NewService(newSender(cfg), cfg.OTP.TTL, cfg.OTP.MaxAttempts)
	sessions := session.NewStore(cfg.Session.TTL)

	srv := server.NewHTTPServer(cfg.Server.Address, server.Deps{
		Store:          st,
		Catalog:        cat,
		Engine:         valuation.NewEngine(cat),
		OTP:            codes,
		Sessions:       sessions,
		Auth:           auth.NewService(cfg.Admin.Username, cfg.Admin.PasswordHash, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Logger:         slog.Default(),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, server.Timeouts{Read: cfg.Server.ReadTimeout, Write: cfg.Server.WriteTimeout})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Started serve cmd", "address", cfg.Server.Address, "database", cfg.Database.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down the server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		session.Janitor(gctx, cfg.Session.SweepInterval, map[string]session.Sweeper{
			"sessions": sessions,
			"otp":      codes,
		})
		return nil
	})

	return g.Wait()
}

func newSender(cfg config.Config) otp.Sender {
	if cfg.OTP.Sender == "smtp" {
		return otp.NewSMTPSender(otp.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	slog.Warn("OTP codes are written to the log; set otp.sender=smtp to mail them")
	return otp.LogSender{Logger: slog.Default()}
}
