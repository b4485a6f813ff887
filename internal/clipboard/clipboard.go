// Package clipboard copies text to the system clipboard for the
// "copy session id / cwd" key binding. Out-of-core-scope glue per the
// dashboard's design: the core only needs a sink that accepts a string
// and may fail silently.
package clipboard

import (
	"log"

	"github.com/atotto/clipboard"
)

// Copy writes text to the system clipboard, logging and swallowing any
// failure (no clipboard utility installed, no display server) rather
// than disrupting the dashboard.
func Copy(text string) bool {
	if err := clipboard.WriteAll(text); err != nil {
		log.Printf("[clipboard] copy failed: %v", err)
		return false
	}
	return true
}
