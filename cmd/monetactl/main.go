// monetactl is the command-line client for the moneta ledger. Writes go
// through the retrying client, so a flaky or crashing server is retried
// with a stable idempotency key instead of double-booking entries.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"moneta/pkg/client"
)

// RootOptions holds flags shared by every subcommand.
type RootOptions struct {
	Addr    string
	Timeout time.Duration
}

func (o *RootOptions) client() *client.Client {
	return client.New(client.Config{
		BaseURL: o.Addr,
		Timeout: o.Timeout,
	})
}

func newRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "monetactl",
		Short:         "Client for the moneta personal finance ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "http://localhost:5000", "base URL of the ledger service")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 2*time.Second, "per-attempt request timeout")

	cmd.AddCommand(
		newListCommand(opts),
		newAddCommand(opts),
		newUpdateCommand(opts),
		newDeleteCommand(opts),
		newCrashCommand(opts),
	)

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
