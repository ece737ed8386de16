package main

import "github.com/iliyamo/trading-network/cmd/server/cmd"

func main() {
	cmd.Execute()
}
