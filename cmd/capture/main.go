// capture stages a fresh photo batch without running the classifier.
// Handy when aiming the webcam or tuning exposure on the bench.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/teslashibe/go-sorter/internal/config"
	"github.com/teslashibe/go-sorter/internal/log"
	"github.com/teslashibe/go-sorter/pkg/camera"
)

var (
	dir = flag.String("dir", config.DefaultStagingDir, "staging directory")
	n   = flag.Int("n", config.DefaultFrameCount, "number of frames to capture")
)

func main() {
	flag.Parse()
	log.Init("info")

	source := camera.NewSource(camera.DefaultConfig(*dir))

	frames, err := source.Capture(context.Background(), *n)
	if err != nil {
		log.Error("capture failed", "error", err)
		os.Exit(1)
	}

	for _, f := range frames {
		fmt.Printf("  %s (%d bytes)\n", f.Path, len(f.JPEG))
	}

	if len(frames) < *n {
		fmt.Printf("only %d of %d frames captured\n", len(frames), *n)
		os.Exit(1)
	}
	fmt.Printf("%d fresh frames staged in %s\n", len(frames), *dir)
}
