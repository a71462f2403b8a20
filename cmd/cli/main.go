// Command jindex builds, queries, serves and publishes Java class indexes.
package main

import "github.com/jindex/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
