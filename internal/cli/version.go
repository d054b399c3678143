package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wraithcrawl/seoscan/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the seoscan build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("seoscan %s (built %s)\n", build.FullVersion(), build.BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
