package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/stockscope/internal/app"
	"github.com/ternarybob/stockscope/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	simple      = flag.Bool("simple", false, "Only print the per-region availability summary")
	admin       = flag.Bool("admin", false, "Also print the per-region size breakdown")
	javascript  = flag.Bool("js", false, "Render pages with headless Chrome (overrides config)")
	logLevel    = flag.String("log-level", "", "Log level (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: stockscope [flags] <product-url-or-path>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("StockScope version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	target := flag.Arg(0)

	if len(configFiles) == 0 {
		for _, candidate := range []string{"stockscope.toml", "stockscope.yaml", "stockscope.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				configFiles = append(configFiles, candidate)
				break
			}
		}
	}

	// 1. defaults -> files -> env, 2. CLI overrides, 3. logger
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		common.GetLogger().Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}
	common.ApplyFlagOverrides(config, *logLevel, *javascript)
	logger := common.InitLogger(config)

	if config.IsProduction() {
		common.PrintBanner()
	}

	application, err := app.New(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, application, target); err != nil {
		logger.Error().Err(err).Str("target", target).Msg("Availability check failed")
		application.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, application *app.App, target string) error {
	service := application.AvailabilityService

	path, err := resolvePath(target)
	if err != nil {
		return err
	}

	if *simple {
		summary, err := service.CheckSimpleAvailability(ctx, path)
		if err != nil {
			return err
		}
		fmt.Println(summary)
		return nil
	}

	reports, err := service.ProcessPath(ctx, path)
	if err != nil {
		return err
	}

	fmt.Println(reports.PublicMessage())
	if *admin {
		fmt.Println()
		fmt.Println(reports.AdminMessage())
	}
	return nil
}

// resolvePath accepts a storefront URL or a bare product path.
func resolvePath(target string) (string, error) {
	if strings.Contains(strings.ToLower(target), "/products/") {
		return common.ProductPathFromURL(target)
	}
	return common.CanonicalProductPath(target)
}
