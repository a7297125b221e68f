package main

import "ethpool/cmd"

func main() {
	cmd.Execute()
}
