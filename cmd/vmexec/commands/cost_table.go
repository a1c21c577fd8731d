package commands

import (
	"github.com/spf13/cobra"

	"github.com/tendermint/vmruntime/config"
)

// MakeCostTableCommand returns the command that prints the configured gas
// cost table as TOML.
func MakeCostTableCommand(conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "cost-table",
		Short: "Print the gas cost table in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := conf.VM.LoadCostTable()
			if err != nil {
				return err
			}
			return table.WriteTOML(cmd.OutOrStdout())
		},
	}
}
