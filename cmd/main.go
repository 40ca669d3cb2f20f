// Command ringside aggregates fight results into canonical athlete profiles.
package main

import "os"

func main() {
	// cobra prints the error.
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
