package main

import "github.com/hostlab/devhost/cmd/devhost/cmd"

func main() {
	cmd.Execute()
}
