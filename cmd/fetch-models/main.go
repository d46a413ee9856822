// Command fetch-models downloads the published SCUNet checkpoints.
//
// The service itself runs an ONNX export of these weights; export them to
// MODEL_DIR/MODEL_FILE before starting image-enhancer with the neural path.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ironsheep/image-enhancer/internal/model"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	family := flag.String("models", model.DefaultFamily, "model family to download")
	dir := flag.String("model-dir", "model_zoo", "directory to store weights in")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall download deadline")
	list := flag.Bool("list", false, "list the checkpoints and exit")
	verbose := flag.BoolP("verbose", "v", false, "enable debug logging")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	weights, err := model.Catalog(*family)
	if err != nil {
		log.WithError(err).WithField("families", model.Families()).Error("Cannot fetch models")
		os.Exit(2)
	}

	if *list {
		for _, w := range weights {
			fmt.Printf("%s\t%s\n", w.Name, w.URL)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	log.WithFields(logrus.Fields{"family": *family, "dir": *dir, "count": len(weights)}).Info("Fetching weights")
	if err := model.FetchAll(ctx, http.DefaultClient, weights, *dir, log); err != nil {
		log.WithError(err).Error("Some downloads failed")
		cancel()
		stop()
		os.Exit(1)
	}
	log.Info("All weights downloaded")
}
