package main

import "github.com/random-logic/sta137-final/cmd"

func main() {
	cmd.Execute()
}
