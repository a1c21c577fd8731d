package commands

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tendermint/vmruntime/config"
	"github.com/tendermint/vmruntime/crypto"
	"github.com/tendermint/vmruntime/internal/executor"
	"github.com/tendermint/vmruntime/internal/modules"
	"github.com/tendermint/vmruntime/libs/log"
	"github.com/tendermint/vmruntime/types"
)

// MakePrologueCommand returns the command that executes a block holding
// only the block metadata pseudo-transaction.
func MakePrologueCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var (
		timestamp uint64
		id        string
		votes     string
		proposer  string
		raw       string
		commit    bool
	)

	cmd := &cobra.Command{
		Use:   "prologue",
		Short: "Execute a block metadata pseudo-transaction",
		Long: `Execute a block holding only block metadata. The metadata is
built from the flags, or taken verbatim from --raw. The resulting write-set
is printed and, with --commit, applied to the state store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := blockMetadataFromFlags(timestamp, id, votes, proposer, raw)
			if err != nil {
				return err
			}

			metrics := newMetrics(conf)
			store, err := openStore(conf, metrics.state)
			if err != nil {
				return err
			}
			defer store.Close()

			table, err := conf.VM.LoadCostTable()
			if err != nil {
				return err
			}
			cache := modules.NewCache(modules.NewStateStore(store),
				modules.WithLogger(logger),
				modules.WithMetrics(metrics.modules),
			)
			be := executor.NewBlockExecutor(store, cache, table,
				executor.BlockExecutorWithLogger(logger),
				executor.BlockExecutorWithMetrics(metrics.executor),
				executor.BlockExecutorWithPrefetch(conf.VM.PrefetchConcurrency),
			)

			res, err := be.ExecuteBlock(cmd.Context(), types.Block{Metadata: metadata})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status: %v\n", res.Prologue.Status)
			fmt.Fprintf(out, "gas used: %d\n", res.Prologue.GasUsed)
			for _, op := range res.WriteSet {
				if op.Deletion {
					fmt.Fprintf(out, "delete %v\n", op.AccessPath)
				} else {
					fmt.Fprintf(out, "write %v (%d bytes)\n", op.AccessPath, len(op.Value))
				}
			}

			if commit {
				version, err := be.CommitBlock(res)
				if err != nil {
					return err
				}
				logger.Info("Committed block", "id", res.Metadata.ID, "version", version)
			}
			return writeMetrics(out, conf)
		},
	}
	cmd.Flags().Uint64Var(&timestamp, "timestamp", uint64(time.Now().UnixNano()/1000),
		"block timestamp in microseconds")
	cmd.Flags().StringVar(&id, "id", "", "hex block id (default: hash of the timestamp)")
	cmd.Flags().StringVar(&votes, "votes", "", "hex previous block votes")
	cmd.Flags().StringVar(&proposer, "proposer", "0x0", "proposer address")
	cmd.Flags().StringVar(&raw, "raw", "", "hex encoded block metadata, overriding the other flags")
	cmd.Flags().BoolVar(&commit, "commit", false, "commit the write-set to the state store")
	return cmd
}

func blockMetadataFromFlags(timestamp uint64, id, votes, proposer, raw string) ([]byte, error) {
	if raw != "" {
		bz, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --raw: %w", err)
		}
		return bz, nil
	}

	meta := types.BlockMetadata{Timestamp: timestamp}
	if id == "" {
		meta.ID = crypto.Sha3([]byte(fmt.Sprint(timestamp)))
	} else {
		bz, err := hex.DecodeString(id)
		if err != nil {
			return nil, fmt.Errorf("invalid --id: %w", err)
		}
		if meta.ID, err = crypto.HashValueFromBytes(bz); err != nil {
			return nil, fmt.Errorf("invalid --id: %w", err)
		}
	}
	var err error
	if meta.PreviousBlockVotes, err = hex.DecodeString(votes); err != nil {
		return nil, fmt.Errorf("invalid --votes: %w", err)
	}
	if meta.Proposer, err = types.ParseAddress(proposer); err != nil {
		return nil, fmt.Errorf("invalid --proposer: %w", err)
	}
	return meta.Encode(), nil
}
