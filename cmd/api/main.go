// Command api is the Lambda behind the API Gateway image routes.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/dmitrijs2005/imagevault/internal/app"
	"github.com/dmitrijs2005/imagevault/internal/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()

	lambda.Start(a.Gateway().Handle)
}
