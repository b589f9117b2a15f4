package main

import "github.com/example/photo-check/cmd"

func main() {
	cmd.Execute()
}
