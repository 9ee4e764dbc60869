package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/TopiaNetwork/dacore/cmd"
)

var mainCmd = &cobra.Command{Use: "dacore"}

func main() {
	mainCmd.AddCommand(cmd.NodeCmd())
	mainCmd.AddCommand(cmd.KeyGenCmd())

	if mainCmd.Execute() != nil {
		os.Exit(1)
	}
}
