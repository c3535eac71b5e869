//go:build !linux

package subcmd

import (
	"github.com/spf13/cobra"
)

var (
	TcStatus = &cobra.Command{
		Use:   "tc-status",
		Short: "stubbed-out method with no effect on non-linux platforms.",
		Run: func(cmd *cobra.Command, args []string) {
		},
	}

	Detach = &cobra.Command{
		Use:   "detach",
		Short: "stubbed-out method with no effect on non-linux platforms.",
		Run: func(cmd *cobra.Command, args []string) {
		},
	}
)
