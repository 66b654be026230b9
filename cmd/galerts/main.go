package main

import (
	"galerts/cmd/galerts/commands"
	"galerts/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
