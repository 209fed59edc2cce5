package main

import "github.com/jmcleod/magiclink/cmd/magiclink/cmd"

func main() {
	cmd.Execute()
}
