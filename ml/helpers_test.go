package ml

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// syntheticRows builds rows where wellness falls with screen time and stress and
// rises with sleep and productivity. Work, leisure and sleep quality are noise.
func syntheticRows(n int, seed int64) ([][]float64, []float64) {
	rnd := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		screen := 1 + rnd.Float64()*11
		work := rnd.Float64() * 8
		leisure := rnd.Float64() * 8
		sleep := 4 + rnd.Float64()*6
		quality := float64(1 + rnd.Intn(5))
		stress := float64(rnd.Intn(11))
		productivity := rnd.Float64() * 100

		target := 90 - 4*screen + 2*sleep - 2*stress + 0.1*productivity + rnd.NormFloat64()*2
		if target < 0 {
			target = 0
		}
		if target > 100 {
			target = 100
		}
		X[i] = []float64{screen, work, leisure, sleep, quality, stress, productivity}
		y[i] = target
	}
	return X, y
}

func writeSyntheticCSV(t *testing.T, n int, seed int64) string {
	t.Helper()
	X, y := syntheticRows(n, seed)
	var b strings.Builder
	b.WriteString("user_id,")
	b.WriteString(strings.Join(DefaultFeatures(), ","))
	b.WriteString("," + DefaultTarget + "\n")
	for i := range X {
		fmt.Fprintf(&b, "u%03d", i)
		for _, v := range X[i] {
			fmt.Fprintf(&b, ",%g", v)
		}
		fmt.Fprintf(&b, ",%g\n", y[i])
	}
	return writeFile(t, "wellness.csv", b.String())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
