package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/hostext/pkg/client"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Dial a running extension's own socket and call Ping",
	Long: `Dial a running extension's own socket and call Ping.

The registration protocol is symmetric: the same Ping RPC the host issues
against an extension can be issued directly against an extension's
per-UUID socket (<registration-socket-path>.<uuid>), which is useful for
diagnosing a live extension out-of-band without going through the host.`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	pingCmd.Flags().String("socket", "", "extension socket path to dial (required)")
	pingCmd.Flags().Duration("timeout", 5*time.Second, "connect timeout")
	pingCmd.MarkFlagRequired("socket")

	viper.BindPFlag("ping.socket", pingCmd.Flags().Lookup("socket"))
	viper.BindPFlag("ping.timeout", pingCmd.Flags().Lookup("timeout"))

	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	socket, _ := cmd.Flags().GetString("socket")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	hc, err := client.Dial(client.Config{RegistrationSocketPath: socket, ConnectTimeout: timeout})
	if err != nil {
		return err
	}
	defer hc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	status, err := hc.Ping(ctx)
	if err != nil {
		return err
	}

	if status.Code != 0 {
		fmt.Printf("unhealthy: code=%d message=%q\n", status.Code, status.Message)
		return fmt.Errorf("ping returned non-zero status code %d", status.Code)
	}
	fmt.Println("ok")
	return nil
}
