package cmd

import (
	"github.com/spf13/cobra"
)

// peerCmd is an alias surface over the identity remote operations.
var peerCmd = &cobra.Command{
	Use:     "peer",
	GroupID: GroupIdentity,
	Short:   "Manage federation peers (alias of 'identity remote')",
	RunE:    requireSubcommand,
}

func init() {
	peerCmd.AddCommand(
		aliasOf(remoteAddCmd),
		aliasOf(remoteRemoveCmd),
		aliasOf(remoteListCmd),
		aliasOf(remoteShowCmd),
	)
	rootCmd.AddCommand(peerCmd)
}

// aliasOf shallow-copies a command so it can hang off a second parent.
func aliasOf(cmd *cobra.Command) *cobra.Command {
	clone := *cmd
	return &clone
}
