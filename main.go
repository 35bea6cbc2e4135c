package main

import "github.com/wfunc/sweepserver/cmd"

func main() {
	cmd.Execute()
}
