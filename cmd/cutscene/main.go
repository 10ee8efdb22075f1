// Command cutscene validates, compiles and exports cutscene graphs.
package main

import "github.com/devicelab-dev/cutscene-compiler/pkg/cli"

func main() {
	cli.Execute()
}
