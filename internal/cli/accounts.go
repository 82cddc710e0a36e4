// internal/cli/accounts.go
package cli

import (
	"text/tabwriter"

	"github.com/spf13/cobra"

	"transferd/internal/config"
)

// NewAccountsCommand 建立 accounts 指令：列出後端中的所有帳戶。
func NewAccountsCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, _, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			accts, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			out := newOutput(cmd.OutOrStdout())
			if root.Format == "json" {
				return out.json(accts)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			out.w = tw
			out.printf("USERNAME\tNAME\tBALANCE\t\n")
			for _, a := range accts {
				out.printf("%s\t%s\t%s\t\n", a.Username, a.Name, a.Balance.Decimal().StringFixed(2))
			}
			if out.err != nil {
				return out.err
			}
			return tw.Flush()
		},
	}
}
