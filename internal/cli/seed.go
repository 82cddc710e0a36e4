// internal/cli/seed.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"transferd/internal/config"
	"transferd/internal/storage"
)

// NewSeedCommand 建立 seed 指令：將 YAML 種子檔的帳戶寫入設定的後端，已存在者略過。
func NewSeedCommand(root *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert accounts from a YAML seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			accts, err := storage.LoadSeed(file)
			if err != nil {
				return err
			}
			store, persist, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := storage.Seed(cmd.Context(), store, accts)
			if err != nil {
				return err
			}
			if persist != nil {
				if err := persist(); err != nil {
					return fmt.Errorf("persist: %w", err)
				}
			}

			out := newOutput(cmd.OutOrStdout())
			if root.Format == "json" {
				return out.json(map[string][]string{"created": nonNil(res.Created), "skipped": nonNil(res.Skipped)})
			}
			out.printf("created %d, skipped %d\n", len(res.Created), len(res.Skipped))
			for _, u := range res.Skipped {
				out.printf("  skipped %s (already exists)\n", u)
			}
			return out.err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "seed file")
	return cmd
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
