// ./main.go
package main

import (
	"github.com/voxforge9/clickpilot/cmd"
)

// main is the entry point for the clickpilot application.
func main() {
	cmd.Execute()
}
