package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lkarlslund/channelsync/pkg/backend"
	"github.com/lkarlslund/channelsync/pkg/config"
	"github.com/lkarlslund/channelsync/pkg/gateway"
	"github.com/lkarlslund/channelsync/pkg/logutil"
	"github.com/lkarlslund/channelsync/pkg/report"
	"github.com/lkarlslund/channelsync/pkg/session"
)

// loadConfig resolves the effective configuration and prints the usage text
// when it is incomplete.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath, config.DefaultEnvFile)
	if err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			fmt.Fprint(cmd.ErrOrStderr(), config.Usage+"\n")
		}
		return nil, err
	}
	if !cmd.Flags().Changed("loglevel") {
		if err := logutil.Configure(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func printSettings(out *report.Printer, cfg *config.Config) {
	out.Infof("Gateway: %s (%s)", cfg.BaseURL, cfg.ClientType)
	out.Infof("Maximum delay between channels: %g seconds", cfg.DelaySeconds)
	out.Infof("Target channel status: %s", gateway.StatusName(cfg.TargetChannelStatus))
}

// connect builds the configured back-end and authenticates against it.
func connect(ctx context.Context, cfg *config.Config, out *report.Printer) (*gateway.Syncer, error) {
	gw, err := backend.New(cfg.ClientType, cfg.BaseURL,
		session.WithBearerToken(cfg.AccessToken),
		session.WithTimeout(cfg.RequestTimeout()),
	)
	if err != nil {
		out.Failf("client setup failed: %v", err)
		return nil, err
	}
	if cfg.UsesToken() {
		out.Infof("Authenticating with access token...")
	} else {
		out.Infof("Authenticating with username and password...")
	}
	user, err := gateway.Authenticate(ctx, gw, gateway.Credentials{
		Token:    cfg.AccessToken,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		out.Failf("%v", err)
		return nil, err
	}
	out.OKf("logged in as %s", user)
	return gateway.NewSyncer(gw, out), nil
}

func batchOptions(cfg *config.Config, mask bool) gateway.BatchOptions {
	return gateway.BatchOptions{
		MaxDelay: cfg.Delay(),
		Status:   cfg.TargetChannelStatus,
		MaskName: mask,
	}
}
