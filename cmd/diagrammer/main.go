// # cmd/diagrammer/main.go
package main

import (
	"os"

	"diagrammer/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
