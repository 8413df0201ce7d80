package main

import "meet-importer/cmd"

func main() {
	cmd.Execute()
}
