// Package main is the entry point for IOC Lens.
//
//	@title						IOC Lens API
//	@version					1.0
//	@description				Extracts indicators of compromise from threat report URLs and generates SIEM hunting queries.
//	@BasePath					/
//	@securityDefinitions.apikey	CookieAuth
//	@in							cookie
//	@name						auth_token
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ioclens/bootstrap"
	"ioclens/cmd"
	_ "ioclens/docs"
)

// run initializes and starts the IOC Lens server.
func run(configPath string) error {
	ctx := context.Background()

	app, err := bootstrap.NewApp(ctx, configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		app.Shutdown()
		return fmt.Errorf("failed to start application: %w", err)
	}

	app.WaitForShutdown()
	app.Shutdown()

	return nil
}

func main() {
	// CLI subcommands share the services but not the server lifecycle
	if len(os.Args) > 1 && cmd.IsSubcommand(os.Args[1]) {
		if err := cmd.Execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
			os.Exit(1)
		}
		return
	}

	configPath := flag.String("config", "", "Config file path (default: ./config.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
