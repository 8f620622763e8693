package main

import (
	"log"

	"github.com/mcq-platform/backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}
