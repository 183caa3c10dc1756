// wellness trains, applies and scores the mental wellness model from the
// command line.
//
// Usage:
//
//	wellness train --dataset data.csv --out models/forest.json
//	wellness predict --model models/forest.json --screen 8 --sleep 7 ...
//	wellness evaluate --model models/forest.json --dataset holdout.csv
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"mindsync/config"
	"mindsync/logger"
	"mindsync/ml"
	"mindsync/wellness"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "wellness",
		Usage:   "Train and apply the mental wellness model",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "YAML config providing defaults for dataset and model settings",
				EnvVars: []string{"MINDSYNC_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"MINDSYNC_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "table",
				Usage: "Output format (table, json)",
			},
		},
		Commands: []*cli.Command{
			trainCommand(),
			predictCommand(),
			evaluateCommand(),
		},
	}
}

// loadConfig reads --config, falling back to defaults when the file is absent.
func loadConfig(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, nil, err
	}
	logCfg := cfg.Log
	logCfg.Level = c.String("log-level")
	logCfg.Format = "console"
	logCfg.File = ""
	log, _, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func trainCommand() *cli.Command {
	return &cli.Command{
		Name:  "train",
		Usage: "Fit a random forest on a dataset and report held-out metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Usage: "CSV dataset path", EnvVars: []string{"MINDSYNC_DATASET"}},
			&cli.StringFlag{Name: "target", Usage: "Target column"},
			&cli.StringFlag{Name: "encoding", Usage: "Dataset character encoding"},
			&cli.IntFlag{Name: "trees", Usage: "Number of trees"},
			&cli.Int64Flag{Name: "seed", Usage: "Random seed for the split and the forest"},
			&cli.Float64Flag{Name: "test-fraction", Usage: "Share of rows held out for scoring"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the fitted model to this path"},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c)
			if err != nil {
				return err
			}
			defer log.Sync()

			if c.IsSet("dataset") {
				cfg.Dataset.Path = c.String("dataset")
			}
			if c.IsSet("target") {
				cfg.Dataset.Target = c.String("target")
			}
			if c.IsSet("encoding") {
				cfg.Dataset.Encoding = c.String("encoding")
			}
			if c.IsSet("trees") {
				cfg.ML.Trees = c.Int("trees")
			}
			if c.IsSet("seed") {
				cfg.ML.Seed = c.Int64("seed")
			}
			if c.IsSet("test-fraction") {
				cfg.ML.TestFraction = c.Float64("test-fraction")
			}

			log.Info("training", zap.String("dataset", cfg.Dataset.Path), zap.Int("trees", cfg.ML.Trees))
			result, err := ml.TrainPipeline(cfg.Dataset.Path, cfg.Dataset.Target, cfg.ML.TrainConfig(), cfg.Dataset.LoadOptions()...)
			if err != nil {
				return err
			}

			if out := c.String("out"); out != "" {
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return err
				}
				if err := result.Model().Save(out); err != nil {
					return err
				}
				log.Info("model saved", zap.String("path", out))
			}
			return printMetrics(c.App.Writer, c.String("format"), result.Metrics)
		},
	}
}

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Score one day of input with a saved model",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "Saved model path", Required: true},
			&cli.StringFlag{Name: "dataset", Usage: "Dataset to rank the score against"},
			&cli.Float64Flag{Name: "screen", Usage: "Total screen time hours", Required: true},
			&cli.Float64Flag{Name: "work", Usage: "Work screen hours"},
			&cli.Float64Flag{Name: "leisure", Usage: "Leisure screen hours"},
			&cli.Float64Flag{Name: "sleep", Usage: "Sleep hours", Required: true},
			&cli.Float64Flag{Name: "quality", Value: 3, Usage: "Sleep quality (1-5)"},
			&cli.Float64Flag{Name: "stress", Value: 5, Usage: "Stress level (0-10)"},
			&cli.Float64Flag{Name: "productivity", Value: 50, Usage: "Productivity (0-100)"},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c)
			if err != nil {
				return err
			}
			defer log.Sync()

			in := ml.DailyInput{
				ScreenTimeHours:    c.Float64("screen"),
				WorkScreenHours:    c.Float64("work"),
				LeisureScreenHours: c.Float64("leisure"),
				SleepHours:         c.Float64("sleep"),
				SleepQuality:       c.Float64("quality"),
				StressLevel:        c.Float64("stress"),
				Productivity:       c.Float64("productivity"),
			}
			if err := wellness.ValidateInput(in); err != nil {
				return err
			}

			model, err := ml.LoadModel(ml.ModelTypeRandomForest, c.String("model"))
			if err != nil {
				return fmt.Errorf("load model: %w", err)
			}
			score, err := ml.Predict(model, in)
			if err != nil {
				return err
			}

			var population []float64
			if path := c.String("dataset"); path != "" {
				ds, err := ml.LoadDataset(path, cfg.Dataset.LoadOptions()...)
				if err != nil {
					return err
				}
				target := cfg.Dataset.Target
				if target == "" {
					target = ml.DefaultTarget
				}
				if population, err = ds.Column(target); err != nil {
					return err
				}
			}
			return printEvaluation(c.App.Writer, c.String("format"), wellness.Evaluate(score, in, population))
		},
	}
}

func evaluateCommand() *cli.Command {
	return &cli.Command{
		Name:  "evaluate",
		Usage: "Score a saved model against a labelled dataset",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "Saved model path", Required: true},
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Usage: "CSV dataset path", Required: true},
			&cli.StringFlag{Name: "target", Value: ml.DefaultTarget, Usage: "Target column"},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c)
			if err != nil {
				return err
			}
			defer log.Sync()

			forest, err := ml.LoadForest(c.String("model"))
			if err != nil {
				return fmt.Errorf("load model: %w", err)
			}
			ds, err := ml.LoadDataset(c.String("dataset"), cfg.Dataset.LoadOptions()...)
			if err != nil {
				return err
			}
			X, y, names, err := ml.SelectFeatures(ds, forest.FeatureNames(), c.String("target"))
			if err != nil {
				return err
			}
			pred, err := forest.PredictBatch(X)
			if err != nil {
				return err
			}
			report, err := ml.CalculateMetrics(y, pred, names, forest)
			if err != nil {
				return err
			}
			log.Info("evaluated", zap.Int("rows", len(y)))
			return printMetrics(c.App.Writer, c.String("format"), report)
		},
	}
}

func printMetrics(w io.Writer, format string, report *ml.MetricsReport) error {
	if format == "json" {
		return writeJSON(w, report)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "samples\t%d\n", report.Samples)
	fmt.Fprintf(tw, "r2\t%.4f\n", report.R2)
	fmt.Fprintf(tw, "mae\t%.4f\n", report.MAE)
	fmt.Fprintf(tw, "mape\t%.2f%%\n", report.MAPE)
	fmt.Fprintf(tw, "smape\t%.2f%%\n", report.SMAPE)
	if len(report.FeatureImportance) > 0 {
		fmt.Fprintln(tw, "\nfeature\timportance")
		for _, row := range report.FeatureImportance {
			fmt.Fprintf(tw, "%s\t%.4f\n", row.Feature, row.Importance)
		}
	}
	return tw.Flush()
}

func printEvaluation(w io.Writer, format string, eval wellness.Evaluation) error {
	if format == "json" {
		return writeJSON(w, eval)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "score\t%.2f\t%s\n", eval.Score, eval.Band)
	fmt.Fprintf(tw, "digital stress\t%.2f\t%s\n", eval.Indices.DigitalStress, eval.Levels["digital_stress_index"])
	fmt.Fprintf(tw, "digital balance\t%.2f\t%s\n", eval.Indices.DigitalBalance, eval.Levels["digital_balance_index"])
	fmt.Fprintf(tw, "percentile\t%.1f\n", eval.Percentile)
	for _, insight := range eval.Insights {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", insight.Area, insight.Observation, insight.Recommendation)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
