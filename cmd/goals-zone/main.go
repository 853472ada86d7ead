package main

import (
	"os"

	"github.com/meneses-pt/goals.zone/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
