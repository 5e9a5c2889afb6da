package main

import "github.com/jmehdipour/formdesk/cmd"

func main() {
	cmd.Execute()
}
