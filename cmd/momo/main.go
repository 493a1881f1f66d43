package main

import (
	"os"

	"github.com/hvkconsulling1/momo-sub000/cmd/momo/commands"
)

// main is the entry point for the momo CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/momo [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
