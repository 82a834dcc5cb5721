package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func rollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <height>",
		Short: "delete all indexed state above height and reset the index pointer to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("parse height: %w", err)
			}

			a, err := buildApp(envFlag(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.finalizer.RollbackToHeight(uint32(target)); err != nil {
				return fmt.Errorf("rollback: %w", err)
			}
			if err := a.pipeline.LoadPools(); err != nil {
				return fmt.Errorf("reload pool registry: %w", err)
			}
			a.log.WithField("height", target).Info("rolled back")
			return nil
		},
	}
}
