package main

import (
	"github.com/k-negishi/google-calendar-hours/internal/cli"
)

// version ビルド時に -ldflags "-X main.version=..." で設定する
var version = "dev"

func main() {
	cli.Execute(version)
}
