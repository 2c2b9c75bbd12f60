// Command gracefulexit runs a process under the shutdown orchestrator and
// inspects the lifecycle journal of past runs.
package main

import (
	"fmt"
	"os"

	"gracefulexit/core"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
}
