package main

import "civicvoice/cli"

func main() {
	cli.Execute()
}
