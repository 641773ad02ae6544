package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/superres/internal/config"
	"github.com/Brownie44l1/superres/internal/handlers"
	"github.com/Brownie44l1/superres/internal/model"
	"github.com/Brownie44l1/superres/internal/pipeline"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.Formatter = new(logrus.TextFormatter)
	log.Level = logrus.InfoLevel
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func main() {
	modelPath := flag.String("m", "", "Path to the super resolution model")
	device := flag.String("d", envOr(config.EnvDevice, "CPU"), "Target device")
	libraryPath := flag.String("pp", os.Getenv(config.EnvLibraryPath), "Path to the onnxruntime shared library")
	flag.Parse()

	if *modelPath == "" {
		log.Fatal("parameter -m is not set")
	}

	log.Infof("Loading model from: %s", *modelPath)

	backend, err := model.NewRuntime(model.Options{
		Device:      *device,
		LibraryPath: *libraryPath,
		Logger:      log,
	})
	if err != nil {
		log.Fatalf("Failed to initialize inference runtime: %v", err)
	}
	defer backend.Close()

	upscaler, err := pipeline.NewUpscaler(backend, *modelPath, nil, log)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	defer upscaler.Close()

	handler := handlers.NewHandler(upscaler, log)

	http.HandleFunc("/health", enableCORS(handler.Health))
	http.HandleFunc("/model", enableCORS(handler.Model))
	http.HandleFunc("/upscale", enableCORS(handler.Upscale))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	width, height := upscaler.InputSize()
	log.Infof("Server starting on port %s", port)
	log.Infof("InferenceEngine: %s", backend.Version())
	log.Infof("Execution provider: %s", backend.Device().Provider)
	log.Infof("Input size: %dx%d", width, height)
	log.Info("Endpoints:")
	log.Info("  GET  /health  - Health check")
	log.Info("  GET  /model   - Model ports")
	log.Info("  POST /upscale - Upscale an image upload")
	log.Infof("Upload test: curl -X POST -F \"image=@lr.png\" -o sr.png http://localhost:%s/upscale", port)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
