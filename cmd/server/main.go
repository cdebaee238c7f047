// Command server runs the image API as a plain HTTP server, for local use
// against MinIO, DynamoDB Local, PostgreSQL or the in-memory backends.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/imagevault/internal/app"
	"github.com/dmitrijs2005/imagevault/internal/buildinfo"
	"github.com/dmitrijs2005/imagevault/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("%v", err)
		return
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
