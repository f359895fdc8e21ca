package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("unknown/internal error: %v", r)
			os.Exit(1)
		}
	}()

	if err := Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
