// sorterd is the host-side daemon of the two-board recycling sorter.
// It waits for the bin controller's UDP "start" trigger, captures three
// photos from the webcam, classifies each as paper or plastic, takes a
// best-of-3 vote, and sends the winning label back over UDP.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-sorter/internal/config"
	"github.com/teslashibe/go-sorter/internal/log"
	"github.com/teslashibe/go-sorter/pkg/camera"
	"github.com/teslashibe/go-sorter/pkg/classifier"
	"github.com/teslashibe/go-sorter/pkg/pipeline"
	"github.com/teslashibe/go-sorter/pkg/transmit"
	"github.com/teslashibe/go-sorter/pkg/trigger"
	"github.com/teslashibe/go-sorter/pkg/web"
)

var (
	logLevel = flag.String("log-level", "", "log level (debug, info, warn, error)")
	webPort  = flag.Int("web-port", -1, "status server port, 0 disables (overrides SORTER_WEB_PORT)")
)

func main() {
	flag.Parse()

	cfg := config.FromEnv()
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *webPort >= 0 {
		cfg.WebPort = *webPort
	}

	log.Init(cfg.LogLevel)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Error("invalid config", "error", e)
		}
		os.Exit(1)
	}

	// The model loads once and is reused across runs. Failure here is
	// unrecoverable; there is nothing to classify with.
	clf, err := classifier.New(classifier.DefaultConfig(cfg.ModelPath, cfg.Classes))
	if err != nil {
		log.Error("model load failed", "error", err)
		os.Exit(1)
	}
	defer clf.Close()
	log.Info("model loaded", "path", cfg.ModelPath, "classes", cfg.Classes)

	source := camera.NewSource(camera.DefaultConfig(cfg.StagingDir))
	sender := transmit.NewSender(cfg.ResultHost, cfg.ResultPort)

	orch := pipeline.New(
		pipeline.Config{FrameCount: cfg.FrameCount, Classes: cfg.Classes},
		source, clf, sender,
	)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	if cfg.WebPort > 0 {
		server := web.NewServer(cfg.WebPort, orch)
		orch.OnEvent(server.PublishEvent)
		go func() {
			if err := server.Start(); err != nil {
				log.Error("status server failed", "error", err)
			}
		}()
		defer server.Shutdown()
	}

	listener := trigger.New(cfg.TriggerPort, cfg.TriggerKeyword, func(ctx context.Context) error {
		_, err := orch.Run(ctx)
		return err
	})

	if err := listener.Listen(ctx); err != nil {
		log.Error("trigger listener failed", "error", err)
		os.Exit(1)
	}
}
