package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the traffic-light machine's diagnostic table",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := buildTrafficLight()
		if err != nil {
			return err
		}
		fmt.Print(m.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
