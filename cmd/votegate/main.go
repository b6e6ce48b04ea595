package main

import (
	"log"

	"github.com/tech-arch1tect/votegate"
)

func main() {
	application, err := votegate.New(votegate.WithAll())
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	application.Run()
}
