package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mindsync/ml"
	"mindsync/wellness"
)

func writeDataset(t *testing.T, dir string, n int) string {
	t.Helper()
	rnd := rand.New(rand.NewSource(12))
	var b strings.Builder
	b.WriteString(strings.Join(ml.DefaultFeatures(), ",") + "," + ml.DefaultTarget + "\n")
	for i := 0; i < n; i++ {
		screen := 1 + rnd.Float64()*11
		sleep := 4 + rnd.Float64()*6
		stress := float64(rnd.Intn(11))
		target := 95 - 4*screen + 2*sleep - 2*stress
		if target < 0 {
			target = 0
		}
		fmt.Fprintf(&b, "%g,%g,%g,%g,%d,%g,%g,%g\n",
			screen, screen/3, screen/3, sleep, 1+rnd.Intn(5), stress, rnd.Float64()*100, target)
	}
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"wellness", "--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	return out.String(), err
}

func TestTrainPredictEvaluate(t *testing.T) {
	dir := t.TempDir()
	dataset := writeDataset(t, dir, 50)
	model := filepath.Join(dir, "models", "forest.json")

	out, err := run(t, "--format", "json", "train", "--dataset", dataset, "--trees", "15", "--out", model)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	var metrics ml.MetricsReport
	if err := json.Unmarshal([]byte(out), &metrics); err != nil {
		t.Fatalf("decode metrics %q: %v", out, err)
	}
	if metrics.Samples != 10 || len(metrics.FeatureImportance) != 7 {
		t.Fatalf("unexpected metrics %+v", metrics)
	}

	out, err = run(t, "--format", "json", "predict", "--model", model, "--dataset", dataset,
		"--screen", "8", "--work", "4", "--leisure", "4", "--sleep", "7", "--quality", "3", "--stress", "5", "--productivity", "70")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	var eval wellness.Evaluation
	if err := json.Unmarshal([]byte(out), &eval); err != nil {
		t.Fatalf("decode evaluation %q: %v", out, err)
	}
	if eval.Score < 0 || eval.Score > 100 || eval.Band != wellness.Band(eval.Score) {
		t.Fatalf("unexpected evaluation %+v", eval)
	}

	out, err = run(t, "evaluate", "--model", model, "--dataset", dataset)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !strings.Contains(out, "samples") || !strings.Contains(out, "50") {
		t.Fatalf("unexpected evaluate output %q", out)
	}
}

func TestPredictRejectsInvalidInput(t *testing.T) {
	_, err := run(t, "predict", "--model", "missing.json", "--screen", "8", "--sleep", "7", "--quality", "9")
	var verr *wellness.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields[0].Field != "sleep_quality" {
		t.Fatalf("expected sleep_quality to be rejected, got %+v", verr.Fields)
	}
}
