package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/client/backend"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/client/console"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/config"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/admin"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/assistant"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/chatlog"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/engine"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/queue"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/recorder"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/util/mylog"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, backend.New)
	do.Provide(di, chatlog.New)
	do.Provide(di, recorder.New)
	do.Provide(di, queue.New)
	do.Provide(di, console.New)
	do.Provide(di, assistant.New)
	do.Provide(di, admin.New)
	do.Provide(di, engine.New)

	assistantSvc := do.MustInvoke[*assistant.Service](di)
	ui := do.MustInvoke[*console.Client](di)

	do.MustInvoke[*recorder.Service](di).SetSink(assistantSvc.HandleClip)
	assistantSvc.SetPrompter(ui)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go ui.RunInputLoop(appCtx)
	go do.MustInvoke[*engine.Service](di).Run(appCtx)

	<-appCtx.Done()
}
