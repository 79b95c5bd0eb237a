// Package main wires together the trafilatura command-line binary.
package main

import "github.com/EiffelFly/trafilatura/cmd"

func main() {
	cmd.Execute()
}
