package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"moneta/pkg/client"
)

func newListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			transactions, err := rootOpts.client().List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
			for _, tx := range transactions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
					tx.ID, tx.CreatedAt.Format("2006-01-02 15:04"), tx.Type, tx.Amount, tx.Category, tx.Description)
			}
			return w.Flush()
		},
	}
}

type addOptions struct {
	Description string
	Amount      float64
	Type        string
	Category    string
	RequestID   string
	Fault       string
}

func newAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Long: `Record a transaction through the retrying write path.

The write carries an idempotency key that stays stable across retries, so
lost responses and worker crashes cannot double-book the entry. Use
--request-id to pin the key yourself when re-running a failed command, and
--fault omission to make the server drop its response (testing only).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var writeOpts []client.WriteOption
			if opts.RequestID != "" {
				writeOpts = append(writeOpts, client.WithRequestID(opts.RequestID))
			}
			if opts.Fault != "" {
				writeOpts = append(writeOpts, client.WithFault(opts.Fault))
			}

			result, err := rootOpts.client().SubmitWrite(cmd.Context(), client.WritePayload{
				Description: opts.Description,
				Amount:      opts.Amount,
				Type:        opts.Type,
				Category:    opts.Category,
			}, writeOpts...)
			if err != nil {
				return err
			}

			if result.AlreadyProcessed {
				fmt.Printf("Already processed as %s (request %s)\n", result.Transaction.ID, result.RequestID)
				return nil
			}
			fmt.Printf("Recorded %s (request %s)\n", result.Transaction.ID, result.RequestID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "what the money was for (required)")
	cmd.Flags().Float64VarP(&opts.Amount, "amount", "a", 0, "signed amount: negative = expense, positive = income")
	cmd.Flags().StringVarP(&opts.Type, "type", "t", "", `"income" or "expense" (required)`)
	cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "category (defaults server-side to Uncategorized)")
	cmd.Flags().StringVar(&opts.RequestID, "request-id", "", "pin the idempotency key instead of generating one")
	cmd.Flags().StringVar(&opts.Fault, "fault", "", `inject a server fault ("omission"); testing only`)
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		description string
		amount      float64
		txType      string
		category    string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload client.UpdatePayload
			if cmd.Flags().Changed("description") {
				payload.Description = &description
			}
			if cmd.Flags().Changed("amount") {
				payload.Amount = &amount
			}
			if cmd.Flags().Changed("type") {
				payload.Type = &txType
			}
			if cmd.Flags().Changed("category") {
				payload.Category = &category
			}

			tx, err := rootOpts.client().Update(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}
			fmt.Printf("Updated %s\n", tx.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "new signed amount")
	cmd.Flags().StringVarP(&txType, "type", "t", "", "new type")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category")

	return cmd
}

func newDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.client().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func newCrashCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "crash",
		Short: "Kill the worker that serves this request (diagnostic)",
		Long: `Ask whichever worker accepts the connection to terminate itself with a
non-zero exit code. The supervisor restarts it immediately; use this to
exercise the restart path end to end.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.client().Crash(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Worker crashed; the supervisor will replace it.")
			return nil
		},
	}
}
