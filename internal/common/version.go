package common

import (
	"fmt"

	"github.com/ternarybob/banner"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/ternarybob/stockscope/internal/common.Version=1.2.0"
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// PrintBanner shows the startup banner with the short version.
func PrintBanner() {
	banner.PrintSimple("StockScope", Version)
}
