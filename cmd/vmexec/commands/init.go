package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tendermint/vmruntime/config"
	"github.com/tendermint/vmruntime/internal/genesis"
	"github.com/tendermint/vmruntime/libs/log"
	"github.com/tendermint/vmruntime/types"
)

// MakeInitCommand returns the command that installs the genesis modules
// into a fresh state store.
func MakeInitCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var funds []string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the state store with the genesis modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			balances, err := parseFunds(funds)
			if err != nil {
				return err
			}

			store, err := openStore(conf, newMetrics(conf).state)
			if err != nil {
				return err
			}
			defer store.Close()

			version, err := genesis.Install(store, balances)
			if errors.Is(err, genesis.ErrInstalled) {
				logger.Info("Found genesis modules", "home", conf.RootDir)
				return nil
			} else if err != nil {
				return err
			}
			logger.Info("Installed genesis modules",
				"modules", len(genesis.Modules()),
				"funded", len(balances),
				"version", version,
			)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&funds, "fund", nil,
		"initial gas balance as <address>=<amount>; may be repeated")
	return cmd
}

func parseFunds(funds []string) (map[types.AccountAddress]uint64, error) {
	balances := make(map[types.AccountAddress]uint64, len(funds))
	for _, f := range funds {
		parts := strings.SplitN(f, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid fund %q: expected <address>=<amount>", f)
		}
		addr, err := types.ParseAddress(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid fund %q: %w", f, err)
		}
		amount, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fund %q: %w", f, err)
		}
		if _, ok := balances[addr]; ok {
			return nil, fmt.Errorf("duplicate fund for %v", addr)
		}
		balances[addr] = amount
	}
	return balances, nil
}
