package main

import (
	"context"
	"fmt"
	"log"

	"github.com/dmitrijs2005/binsync/internal/server"
	"github.com/dmitrijs2005/binsync/internal/server/auth"
	"github.com/dmitrijs2005/binsync/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.IssueToken != "" {
		token, err := auth.GenerateToken(cfg.IssueToken, []byte(cfg.SecretKey), cfg.TokenValidityDuration)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
