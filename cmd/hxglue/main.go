// Command hxglue runs the demo server and the runtime's standalone tools.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
