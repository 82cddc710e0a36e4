// internal/cli/root.go

// Package cli 定義 transferd 的命令列介面：serve、seed、accounts。
// 所有指令都從環境變數（與可選的 .env）讀取設定，旗標只覆寫少數常用項目。
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions 為所有子指令共用的全域旗標。
type RootOptions struct {
	Format string // "text" | "json"
}

// ValidFormats 為允許的輸出格式。
var ValidFormats = []string{"text", "json"}

// NewRootCommand 建立根指令。
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "transferd",
		Short: "transferd - two-account funds transfer service",
		Long: "Moves funds between two accounts over a store with single-record atomic updates,\n" +
			"compensating the debit when the credit fails.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewAccountsCommand(opts))

	return cmd
}
