package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pairlink/go-pairlink/pairlink/identity"
	"github.com/pairlink/go-pairlink/pairlink/pairing"
)

func pairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pair <offer>",
		Short: "Import a peer's offer and store the pairing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := loadKeystore()
			if err != nil {
				return err
			}
			o, err := pairing.DecodeOffer(args[0])
			if err != nil {
				return err
			}
			if o.DeviceID == string(ks.DeviceID()) {
				return fmt.Errorf("offer is from this device itself")
			}
			key, err := o.Key()
			if err != nil {
				return err
			}
			if err := ks.SetPairing(identity.DeviceID(o.DeviceID), key); err != nil {
				return err
			}
			if err := ks.WriteFile(keystorePath(), passphrase); err != nil {
				return err
			}
			fmt.Printf("Paired with %q.\nPeer fingerprint: %s\n", o.DeviceID, identity.Fingerprint(key))
			fmt.Println("Compare the fingerprint with the peer's own display before trusting the pairing.")
			return nil
		},
	}
}

func unpairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpair <device-id>",
		Short: "Forget a stored pairing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := loadKeystore()
			if err != nil {
				return err
			}
			ks.RemovePairing(identity.DeviceID(args[0]))
			if err := ks.WriteFile(keystorePath(), passphrase); err != nil {
				return err
			}
			fmt.Printf("Unpaired from %q.\n", args[0])
			return nil
		},
	}
}
