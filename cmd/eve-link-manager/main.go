// Package main implements the eve-link-manager command
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/grafana/eve-link-manager/cmd/eve-link-manager/commands"
	"github.com/grafana/eve-link-manager/pkg/runtime"
)

func main() {
	env := runtime.DefaultEnvironment()

	rootCmd := commands.BuildRootCmd(env)
	if err := rootCmd.Do(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
