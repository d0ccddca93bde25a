// Command scanner reads barcodes from a zbarcam camera stream, confirms each
// one across consecutive frames and records it in the pantry inventory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pantrylens/backend/config"
	"github.com/pantrylens/backend/internal/app"
	"github.com/pantrylens/backend/internal/domain"
	"github.com/pantrylens/backend/internal/infrastructure/camera"
	"github.com/pantrylens/backend/internal/usecase"
)

func main() {
	once := flag.Bool("once", false, "exit after the first recorded scan")
	stdin := flag.Bool("stdin", false, "read zbar lines from stdin instead of starting zbarcam (implies -once)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := app.New(ctx, cfg)
	defer pipeline.Close()

	for ctx.Err() == nil {
		capture, err := openCapture(ctx, cfg, *stdin)
		if err != nil {
			report(err)
			return
		}

		session := usecase.NewScanSession(cfg.Scan.StabilityThreshold)
		session.SetDebug(cfg.Scan.Debug)

		barcode, err := session.Run(ctx, capture)
		if err != nil {
			if !errors.Is(err, domain.ErrScanCancelled) {
				report(err)
			}
			return
		}

		outcome, err := pipeline.Resolver.HandleDetected(ctx, barcode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not record %s: %v\n", barcode, err)
		} else {
			printOutcome(outcome)
		}

		// stdin is closed when its capture is released
		if *once || *stdin {
			return
		}
	}
}

func openCapture(ctx context.Context, cfg *config.Config, stdin bool) (domain.CameraCapture, error) {
	if stdin {
		return camera.NewLineCapture(os.Stdin), nil
	}
	return camera.StartZbarcam(ctx, cfg.Camera.Binary, cfg.Camera.Device)
}

func report(err error) {
	var camErr *domain.CameraError
	if errors.As(err, &camErr) {
		fmt.Fprintln(os.Stderr, camErr.Message())
	}
	log.Printf("[SCAN] session ended: %v", err)
}

func printOutcome(outcome *domain.ScanOutcome) {
	switch outcome.Action {
	case domain.ActionIncremented:
		fmt.Printf("+1 %s (now %d)\n", outcome.Item.Name, outcome.Item.Quantity)
	case domain.ActionCreatedCached:
		fmt.Printf("new %s\n", outcome.Item.Name)
	default:
		suffix := ""
		if outcome.Resolving {
			suffix = ", looking up name"
		}
		fmt.Printf("new %s%s\n", outcome.Item.Name, suffix)
	}
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stderr)
}
