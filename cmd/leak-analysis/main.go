package main

import "github.com/leak-analysis/cmd/leak-analysis/cmd"

func main() {
	cmd.Execute()
}
