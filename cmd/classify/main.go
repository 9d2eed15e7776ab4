// classify runs the best-of-N vote over an already-staged image
// directory and prints the per-image predictions and the decision.
// With -send the winner is also delivered to the bin controller, which
// makes this the manual equivalent of one full pipeline run minus the
// capture stage.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teslashibe/go-sorter/internal/config"
	"github.com/teslashibe/go-sorter/internal/log"
	"github.com/teslashibe/go-sorter/pkg/classifier"
	"github.com/teslashibe/go-sorter/pkg/transmit"
	"github.com/teslashibe/go-sorter/pkg/vote"
)

var (
	dir  = flag.String("dir", "", "image directory (default: staging dir from config)")
	send = flag.Bool("send", false, "send the decision to the bin controller")
)

func main() {
	flag.Parse()
	log.Init("warn") // keep stdout readable, this is an interactive tool

	cfg := config.FromEnv()
	imageDir := cfg.StagingDir
	if *dir != "" {
		imageDir = *dir
	}

	clf, err := classifier.New(classifier.DefaultConfig(cfg.ModelPath, cfg.Classes))
	if err != nil {
		fmt.Fprintf(os.Stderr, "model load failed: %v\n", err)
		os.Exit(1)
	}
	defer clf.Close()

	paths, err := stagedImages(imageDir, cfg.FrameCount)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("Images used:")
	for _, p := range paths {
		fmt.Printf("  %s\n", filepath.Base(p))
	}

	fmt.Println("\nPer-image predictions:")
	ballots := make([]vote.Ballot, 0, len(paths))
	for _, p := range paths {
		jpeg, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", p, err)
			os.Exit(1)
		}
		res, err := clf.Classify(jpeg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "classify %s: %v\n", p, err)
			os.Exit(1)
		}
		fmt.Printf("  %s -> %s (%.2f%%)   [%s]\n",
			filepath.Base(p), res.Label, res.Confidence, probsLine(cfg.Classes, res.Probs))
		ballots = append(ballots, res.Ballot())
	}

	decision, err := vote.Decide(cfg.Classes, ballots)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vote: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nBest-of-%d result: %s (%s)\n", len(ballots), decision.Label, decision.Method)

	if *send {
		sender := transmit.NewSender(cfg.ResultHost, cfg.ResultPort)
		if err := sender.Send(decision.Label); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Sent %q to %s:%d\n", decision.Label, cfg.ResultHost, cfg.ResultPort)
	}
}

// stagedImages returns the first n staged JPEGs in lexicographic order,
// which is capture order under the ordinal naming scheme.
func stagedImages(dir string, n int) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return nil, err
	}
	if len(paths) < n {
		return nil, fmt.Errorf("need at least %d images in %s, found %d", n, dir, len(paths))
	}
	sort.Strings(paths)
	return paths[:n], nil
}

func probsLine(classes []string, probs []float64) string {
	parts := make([]string, len(classes))
	for i, c := range classes {
		parts[i] = fmt.Sprintf("%s=%.3f", c, probs[i])
	}
	return strings.Join(parts, ", ")
}
