// ./main.go
package main

import (
	"github.com/adamsbytes/rocinante-sub014/cmd"
)

func main() {
	// Command-line parsing, configuration and execution all live in cmd.
	cmd.Execute()
}
