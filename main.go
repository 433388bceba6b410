package main

import "github.com/iksnae/chatdesk/cmd"

func main() {
	cmd.Execute()
}
