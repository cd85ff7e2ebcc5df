package commands

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pairlink/go-pairlink/pairlink/keystore"
)

var (
	home       string
	passphrase string
	relayAddr  string
)

func Execute() error {
	root := &cobra.Command{
		Use:          "pairlink",
		Short:        "End-to-end encrypted channel between paired devices",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".pairlink")
			}
			return os.MkdirAll(home, 0o700)
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.pairlink)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the keystore")
	root.PersistentFlags().StringVar(&relayAddr, "relay", "localhost:7447", "relay address")

	root.AddCommand(keygenCmd(), offerCmd(), pairCmd(), unpairCmd(), sendCmd(), recvCmd(), relayCmd())
	return root.Execute()
}

func keystorePath() string { return filepath.Join(home, keystore.DefaultFileName) }

func loadKeystore() (*keystore.Keystore, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase required (-p)")
	}
	return keystore.ReadFile(keystorePath(), passphrase)
}

// cliLogger builds the console logger subcommands hand to the library.
func cliLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}
