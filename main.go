package main

import (
	"os"

	logger "github.com/sirupsen/logrus"
)

func main() {
	logger.SetFormatter(&logger.TextFormatter{FullTimestamp: true})
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
