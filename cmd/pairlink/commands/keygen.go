package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pairlink/go-pairlink/pairlink/identity"
	"github.com/pairlink/go-pairlink/pairlink/keystore"
)

func keygenCmd() *cobra.Command {
	var deviceID string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create the device identity and keystore",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			path := keystorePath()
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("keystore already exists at %s; remove it to start over", path)
			}

			kp, err := identity.Generate()
			if err != nil {
				return err
			}
			ks, err := keystore.New(identity.DeviceID(deviceID), kp)
			if err != nil {
				return err
			}
			if err := ks.WriteFile(path, passphrase); err != nil {
				return err
			}
			fmt.Printf("Identity created for %q.\nFingerprint: %s\n", deviceID, ks.Fingerprint())
			return nil
		},
	}
	cmd.Flags().StringVar(&deviceID, "id", "", "device ID announced to the relay (e.g. desktop, mobile)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
