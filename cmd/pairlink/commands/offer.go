package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pairlink/go-pairlink/pairlink/pairing"
)

func offerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "offer",
		Short: "Print the pairing offer to show to a peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := loadKeystore()
			if err != nil {
				return err
			}
			o := pairing.NewOffer(ks.DeviceID(), ks.KeyPair().Public)
			fmt.Printf("Offer: %s\nFingerprint: %s\n", o.Encode(), ks.Fingerprint())
			return nil
		},
	}
}
