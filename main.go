// Package main is the entry point for the scanmirror CLI.
package main

import "github.com/kazie/pylint-pycharm/cmd"

func main() {
	cmd.Execute()
}
