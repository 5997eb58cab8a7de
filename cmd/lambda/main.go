// Command lambda serves the upload relay behind API Gateway
package main

import (
	"log"

	"github.com/amirphl/ihancer-relay/app/adapters"
	"github.com/amirphl/ihancer-relay/app/services"
	businessflow "github.com/amirphl/ihancer-relay/business_flow"
	"github.com/amirphl/ihancer-relay/config"
	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	provider, err := services.NewEnhancementProvider(cfg.Enhancer)
	if err != nil {
		log.Fatalf("Failed to initialize enhancement provider: %v", err)
	}

	adapter := adapters.NewLambdaEnhanceAdapter(businessflow.NewEnhanceFlow(provider), cfg.Upload, cfg.Server.RequestTimeout)

	log.Printf("Lambda relay ready: provider=%s version=%s", provider.Name(), cfg.Deployment.Version)
	lambda.Start(adapter.Handle)
}
