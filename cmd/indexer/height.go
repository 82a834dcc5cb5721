package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func heightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "height",
		Short: "print the current committed index height",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(envFlag(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			h, ok, err := a.finalizer.CurrentHeight()
			if err != nil {
				return fmt.Errorf("read height: %w", err)
			}
			if !ok {
				fmt.Println("unindexed")
				return nil
			}
			fmt.Println(h)
			return nil
		},
	}
}
