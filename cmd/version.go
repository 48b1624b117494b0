package main

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli/v2"
)

func versionCmd(c *cli.Context) error {
	fmt.Fprintf(c.App.Writer, "Version:      %s\n", Version)
	fmt.Fprintf(c.App.Writer, "Go version:   %s\n", runtime.Version())
	fmt.Fprintf(c.App.Writer, "OS/Arch:      %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}
