package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	var peerID string
	cmd := &cobra.Command{
		Use:   "send <text>...",
		Short: "Encrypt and send a message to the paired peer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			dev, err := openDevice(ctx, peerID)
			if err != nil {
				return err
			}
			defer dev.Close()

			if err := dev.Send(ctx, Message{Type: "text", Body: strings.Join(args, " ")}); err != nil {
				return err
			}
			fmt.Println("Sent.")
			return nil
		},
	}
	cmd.Flags().StringVar(&peerID, "peer", "", "peer device ID (default: the only pairing)")
	return cmd
}
