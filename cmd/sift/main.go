package main

import (
	"sift/cmd/handlers"
	"sift/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
