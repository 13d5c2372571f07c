package main

import (
	"errors"
	"flag"
	"io/fs"

	"github.com/joho/godotenv"

	"github.com/pace-platform/pace-admin/internal/config"
	"github.com/pace-platform/pace-admin/internal/webserver"
)

func main() {
	confPath := flag.String("config", "config.toml", "Path to config file")
	envPath := flag.String("env", ".env", "Path to an optional .env file")
	flag.Parse()

	server := webserver.New()
	logger := server.Logger()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Fatalf("Failed to load %s: %v", *envPath, err)
	}

	conf, err := config.LoadFromTomlFileAndValidate(*confPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	server.Run(conf)
}
