package main

import "github.com/mzahid786/paircall/internal/cli"

func main() {
	cli.Execute()
}
