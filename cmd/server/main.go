package main

import "github.com/meetgrid/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
