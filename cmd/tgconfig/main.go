// tgconfig - runtime configuration service for the TG-Commerce front ends
package main

import (
	"fmt"
	"os"

	"github.com/professor93/tgconfig/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
