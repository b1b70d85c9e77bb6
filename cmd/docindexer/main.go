// Command docindexer indexes French plain-text documents and serves keyword
// search over them. It also compiles the lemma and frequency dictionaries
// the indexer loads at start-up.
//
// Usage:
//
//	docindexer serve [--config configs/development.yaml]
//	docindexer compile-lemmas glaff.txt data/lemmas.didx
//	docindexer compile-frequencies corpus/ data/frequency.didx
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/cmd/docindexer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
