package main

import "github.com/user/devscope/cmd"

func main() {
	cmd.Execute()
}
