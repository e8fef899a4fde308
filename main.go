package main

import "Melodia/cmd"

func main() {
	cmd.Execute()
}
