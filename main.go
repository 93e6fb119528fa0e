package main

import "github.com/killallgit/cognilink/cmd"

func main() {
	cmd.Execute()
}
