package main

import "musecrate/cmd"

func main() {
	cmd.Execute()
}
