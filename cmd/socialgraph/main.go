// Command socialgraph seeds, queries and lays out the people graph stored in Neo4j.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
