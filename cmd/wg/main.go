/*
wg is the workgraph CLI: a local-first, content-addressed work-graph
engine coordinating autonomous agent processes.

Usage:

	wg <command> [arguments]

Common commands:

	wg init           Initialize a workgraph
	wg add            Add a task
	wg ready          List ready tasks
	wg coordinator    Run the coordinator loop
	wg identity init  Bootstrap the identity store
	wg runs list      List graph snapshots

See 'wg help <command>' for more information on a specific command.
*/
package main

import (
	"os"

	"github.com/nikete/workgraph/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
