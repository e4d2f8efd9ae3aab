package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/luhtfiimanal/go-serial-poll/internal/config"
	"github.com/luhtfiimanal/go-serial-poll/internal/logs"
)

func main() {
	// .env values must be exported before flags read their EnvVars
	if err := config.LoadDotEnv(".env"); err != nil {
		logs.Warn("ignoring .env", zap.Error(err))
	}

	wrapper := NewWrapper()
	err := wrapper.Run(os.Args)
	logs.Sync()
	if err != nil {
		logs.Fatal("serialmon failed", zap.Error(err))
	}
}
