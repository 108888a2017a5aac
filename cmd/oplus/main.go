package main

import (
	"os"

	"github.com/openergy/oplus/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
