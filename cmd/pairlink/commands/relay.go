package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pairlink/go-pairlink/pairlink/relay"
	relayconfig "github.com/pairlink/go-pairlink/pairlink/relay/config"
)

func relayCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run a relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := relayconfig.Default()
			if configFile != "" {
				var err error
				cfg, err = relayconfig.LoadFile(configFile)
				if err != nil {
					return err
				}
			}

			log := cliLogger().Level(cfg.Level())
			srv := relay.NewServer(cfg.Server(), log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				srv.Close()
			}()

			log.Info().Str("listen", cfg.Listen).Msg("relay starting")
			err := srv.ListenAndServe(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "f", "", "relay config file (TOML)")
	return cmd
}
