package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/ironsheep/image-enhancer/internal/config"
	"github.com/ironsheep/image-enhancer/internal/enhance"
	"github.com/ironsheep/image-enhancer/internal/model"
	"github.com/ironsheep/image-enhancer/internal/server"
	"github.com/sirupsen/logrus"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-enhancer %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("image-enhancer - HTTP service for SCUNet image restoration")
			fmt.Println()
			fmt.Println("Usage: image-enhancer [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from .env and config/config.yaml):")
			fmt.Println("  HOST, PORT              Listen address (default 0.0.0.0:5001)")
			fmt.Println("  DEBUG=true              Enable debug logging")
			fmt.Println("  MODEL_DIR, MODEL_FILE   ONNX weights (default model_zoo/scunet_color_real_psnr.onnx)")
			fmt.Println("  ONNXRUNTIME_LIB         Path to the onnxruntime shared library")
			fmt.Println()
			fmt.Println("Without a weights file the service applies classic filter enhancement.")
			return
		}
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(new(logrus.JSONFormatter))

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log.WithField("version", Version).WithFields(cfg.LogFields()).Info("Starting image enhancer")

	loader := model.NewLoader(cfg.ModelPath(), func(path string) (model.Restorer, error) {
		r, err := model.OpenONNX(path, model.ONNXOptions{LibraryPath: cfg.ONNXRuntimeLib})
		if err != nil {
			return nil, err
		}
		return r, nil
	}, log)
	if cfg.PreloadModel {
		loader.Load()
	}

	enhancer := enhance.New(loader, enhance.Options{
		WindowSize:      cfg.WindowSize,
		JPEGQuality:     cfg.JPEGQuality,
		MaxPixels:       cfg.MaxImagePixels,
		MaxNeuralPixels: cfg.MaxNeuralPixels,
	}, log)
	srv := server.New(cfg, enhancer, loader, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("HTTP server stopped")
			exitCode = 1
		}
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("Graceful shutdown failed")
		}
		cancel()
	}

	if err := loader.Close(); err != nil {
		log.WithError(err).Warn("Failed to release model")
	}
	os.Exit(exitCode)
}
