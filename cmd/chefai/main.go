// Command chefai is a recipe assistant: it ingests a recipe knowledge base
// into a vector store, answers cooking questions grounded in the nearest
// recipes, and grades answers with a second model call. It runs as a
// one-shot CLI, a batch evaluation, or an HTTP server with a web UI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/54b3r/chefai-go/cmd/chefai/commands"
)

func main() {
	if err := commands.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
