package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-iou/confusion"
	"github.com/nvr-ai/go-iou/overlap"
)

// input is the file format read by -input. Boxes are either rows of
// (x, y, w, h) or flat buffers in the configured layout.
type input struct {
	Truth     [][]float64 `json:"truth"`
	Pred      [][]float64 `json:"pred"`
	TruthFlat []float64   `json:"truth_flat"`
	PredFlat  []float64   `json:"pred_flat"`
}

func loadBatches(path string, layout overlap.Layout) (overlap.Batch, overlap.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read input file")
	}

	var in input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, nil, errors.Wrap(err, "failed to unmarshal input")
	}

	if in.TruthFlat != nil || in.PredFlat != nil {
		truth, err := overlap.BatchFromFlat(in.TruthFlat, layout)
		if err != nil {
			return nil, nil, errors.Wrap(err, "truth_flat")
		}
		pred, err := overlap.BatchFromFlat(in.PredFlat, layout)
		if err != nil {
			return nil, nil, errors.Wrap(err, "pred_flat")
		}
		return truth, pred, nil
	}

	truth, err := overlap.NewBatch(in.Truth)
	if err != nil {
		return nil, nil, errors.Wrap(err, "truth")
	}
	pred, err := overlap.NewBatch(in.Pred)
	if err != nil {
		return nil, nil, errors.Wrap(err, "pred")
	}

	return truth, pred, nil
}

func main() {
	var (
		inputFile  = flag.String("input", "", "Path to a JSON file with truth and pred boxes")
		configFile = flag.String("config", "", "Path to a JSON metric configuration")
		precision  = flag.String("precision", "", "Override precision (FP32 or FP64)")
		policy     = flag.String("policy", "", "Override denominator policy (zero or error)")
		scale      = flag.Float64("scale", 0, "Override loss scale")
		threshold  = flag.Float64("threshold", 0.5, "Score counted as a hit in the summary")
		grad       = flag.Bool("grad", false, "Print the loss gradient of every pair")
		verbose    = flag.Bool("verbose", false, "Log batch summaries")
	)
	flag.Parse()

	if *inputFile == "" {
		log.Fatal("Input file is required (-input)")
	}

	config := overlap.DefaultConfig()
	if *configFile != "" {
		var err error
		if config, err = overlap.LoadConfig(*configFile); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *precision != "" {
		config.Precision = overlap.Precision(*precision)
	}
	if *policy != "" {
		config.DenominatorPolicy = overlap.DenominatorPolicy(*policy)
	}
	if *scale != 0 {
		config.LossScale = *scale
	}

	var opts []overlap.Option
	if *verbose {
		opts = append(opts, overlap.WithLogger(log.Default()))
	}

	metric, err := overlap.NewMetric(config, opts...)
	if err != nil {
		log.Fatalf("Failed to create metric: %v", err)
	}

	truth, pred, err := loadBatches(*inputFile, config.Layout)
	if err != nil {
		log.Fatalf("Failed to load boxes: %v", err)
	}

	result, err := metric.Evaluate(truth, pred)
	if err != nil {
		log.Fatalf("Failed to evaluate: %v", err)
	}

	var total float64
	for i := range result.Score {
		total += result.Loss[i]
		fmt.Printf("%4d truth=%v pred=%v score=%.6f loss=%.4f apart=%t\n",
			i, truth[i], pred[i], result.Score[i], result.Loss[i], result.Apart[i])
		if *grad {
			fmt.Printf("     dloss/dpred=%v\n", result.Gradient[i])
		}
	}

	n := metric.BatchSize(truth)
	if n == 0 {
		fmt.Println("No pairs")
		return
	}

	matrix := confusion.FromScores(result.Score, *threshold)
	fmt.Printf("pairs=%d mean_loss=%.4f precision=%s %s\n", n, total/float64(n), config.Precision, matrix.String())
}
