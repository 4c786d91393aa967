package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

const (
	AppName    = "gst-element"
	AppVersion = "1.0.0"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
