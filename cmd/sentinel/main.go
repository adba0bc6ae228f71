package main

import (
	"stocksentinel-backend/cmd/sentinel/commands"
	"stocksentinel-backend/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
