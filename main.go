package main

import "github.com/gaurav-prasanna/markify/cmd"

func main() {
	cmd.Execute()
}
