// Command tapdance compiles, validates and simulates tap-dance keymaps.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/tapdance/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
