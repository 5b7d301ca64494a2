// Command propctl inspects dependency properties and their snapshots.
package main

import "github.com/mesh-intelligence/depprop/internal/cli"

func main() {
	cli.Execute()
}
