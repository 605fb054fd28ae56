package main

import "github.com/codectx/codectx/cmd"

func main() {
	cmd.Execute()
}
