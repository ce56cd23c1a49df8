package main

import "github.com/iliyamo/restaurant-table-reservation/cmd/server/command"

func main() {
	command.Execute()
}
