// Command explainctl inspects an explainbot configuration offline: which
// keyword framing a text selects, which search tool would be enabled, how a
// reply would be segmented, the effective configuration and the conversation
// context assembled from the configured database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
