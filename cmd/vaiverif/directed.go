package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vaiverif/env"
	"github.com/sarchlab/vaiverif/vai"
)

var directedCmd = &cobra.Command{
	Use:       "directed encrypt|decrypt",
	Short:     "Send random operations of one mode one at a time.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"encrypt", "decrypt"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var mode vai.Mode

		switch args[0] {
		case "encrypt":
			mode = vai.Encrypt
		case "decrypt":
			mode = vai.Decrypt
		default:
			return fmt.Errorf("unknown mode %q", args[0])
		}

		count, _ := cmd.Flags().GetInt("count")

		_, err = env.RunDirected(cfg, mode, count, cmd.OutOrStdout())

		return err
	},
}

func init() {
	rootCmd.AddCommand(directedCmd)
	directedCmd.Flags().Int("count", 10, "number of operations")
}
