package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gin-gonic/gin"
	"github.com/nekomi/avatarguard/config"
	"github.com/nekomi/avatarguard/onnx"
	"github.com/nekomi/avatarguard/server"
	ort "github.com/yalue/onnxruntime_go"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if config.C().Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	slog.Info("Starting AvatarGuard")

	ort.SetSharedLibraryPath(onnx.LibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("Failed to initialize ONNX Runtime environment", slog.String("error", err.Error()))
		return
	}
	defer ort.DestroyEnvironment()

	server.Init()

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.POST("/classify", server.ClassifyHandler)
	r.POST("/predict", server.PredictHandler)
	r.GET("/health", server.HealthHandler)

	addr := config.C().Host + ":" + config.C().Port
	slog.Info("Listening on", slog.String("address", addr))
	go func() {
		if err := r.Run(addr); err != nil {
			slog.Error("Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}
