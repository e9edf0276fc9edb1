package main

import "github.com/factuurlab/factuur/cmd"

func main() {
	cmd.Execute()
}
