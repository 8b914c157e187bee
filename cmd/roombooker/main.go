package main

import (
	"context"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd(version).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
