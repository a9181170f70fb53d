// jobshop is the command-line entry point: run a single
// controller-constrained episode or compare scheduling policies on an
// instance.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shopsim/jobshop/common/log/hooks"
)

type command interface {
	registerFlags() *cobra.Command
	run(cmd *cobra.Command, args []string) error
}

func main() {
	log.AddHook(hooks.NewContextHook())

	rootCmd := &cobra.Command{
		Use:   "jobshop",
		Short: "jobshop runs and compares job shop scheduling policies",
		Run:   func(*cobra.Command, []string) {},
	}

	addCmd := func(cmd command) {
		cobraCmd := cmd.registerFlags()
		cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
			return cmd.run(innerCmd, args)
		}
		rootCmd.AddCommand(cobraCmd)
	}
	addCmd(&runCmd{})
	addCmd(&compareCmd{})

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
