package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/DenisKhanov/DocBOT/internal/app/dbot"
)

func main() {
	ctx := context.Background()

	app, err := dbot.NewApp(ctx)
	if err != nil {
		logrus.Fatalf("failed to init app: %v", err)
	}
	app.Run()
}
