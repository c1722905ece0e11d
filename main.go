package main

import (
	"github.com/mj1618/desktop-escalate/cmd"
	_ "github.com/mj1618/desktop-escalate/internal/platform/darwin"
)

func main() {
	cmd.Execute()
}
