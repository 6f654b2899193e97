package main

import "github.com/lkhoram/patrascan/cmd"

func main() {
	cmd.Execute()
}
