package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "drive the indexer from the last committed height to the node's current tip",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(envFlag(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			tip64, err := a.client.GetBlockCount(ctx)
			if err != nil {
				return fmt.Errorf("get tip: %w", err)
			}
			tip := uint32(tip64)

			start := uint32(0)
			if h, ok, err := a.finalizer.CurrentHeight(); err != nil {
				return fmt.Errorf("read current height: %w", err)
			} else if ok {
				start = h + 1
			}

			for height := start; height <= tip; height++ {
				if err := a.pipeline.ProcessHeight(ctx, height, tip); err != nil {
					return fmt.Errorf("process height %d: %w", height, err)
				}
				a.log.WithField("height", height).Info("indexed block")
			}
			return nil
		},
	}
}
