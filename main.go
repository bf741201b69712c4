package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"label-catalog-api/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
