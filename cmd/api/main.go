package main

import (
	"context"
	"log"

	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/app"
	"github.com/amo-tech-ai/fashionistas100-23b70512-sub000/internal/config"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println(".env not found, using process environment")
	}

	cfg := config.MustLoad()

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("app init: %v", err)
	}

	if err = application.Run(); err != nil {
		log.Fatalf("app run: %v", err)
	}
}
