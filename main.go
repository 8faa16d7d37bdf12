package main

import "veilslot/cmd"

func main() {
	cmd.Execute()
}
