package main

import (
	"fmt"
	"os"

	"github.com/codefionn/charwizard/internal/credential"
)

func main() {
	credential.Init()
	err := newRootCommand().Execute()
	credential.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
