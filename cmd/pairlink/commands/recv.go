package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func recvCmd() *cobra.Command {
	var peerID string
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Receive and print messages until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			dev, err := openDevice(dialCtx, peerID)
			cancel()
			if err != nil {
				return err
			}
			defer dev.Close()

			fmt.Println("Listening; press Ctrl-C to stop.")
			err = dev.Run(ctx, func(m Message) {
				fmt.Printf("[%s] %s\n", m.Type, m.Body)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&peerID, "peer", "", "peer device ID (default: the only pairing)")
	return cmd
}
