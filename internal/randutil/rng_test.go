package randutil

import (
	"math"
	"testing"
)

func TestSameSeedSameSequence(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a, b := New(1), New(2)
	same := 0
	for i := 0; i < 20; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 20 {
		t.Error("seeds 1 and 2 produced identical sequences")
	}
}

func TestChoice(t *testing.T) {
	g := New(7)
	counts := make([]int, 3)
	const n = 20000
	for i := 0; i < n; i++ {
		counts[g.Choice([]float64{0.2, 0.0, 0.8})]++
	}
	if counts[1] != 0 {
		t.Errorf("zero-weight index drawn %d times", counts[1])
	}
	share := float64(counts[2]) / n
	if math.Abs(share-0.8) > 0.02 {
		t.Errorf("index 2 share = %v, want ~0.8", share)
	}
}

func TestSample(t *testing.T) {
	g := New(3)
	tests := []struct {
		name string
		n, k int
		want int
	}{
		{"subset", 10, 4, 4},
		{"all", 5, 5, 5},
		{"clamped", 3, 10, 3},
		{"none", 10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Sample(tt.n, tt.k)
			if len(got) != tt.want {
				t.Fatalf("len(Sample(%d, %d)) = %d, want %d", tt.n, tt.k, len(got), tt.want)
			}
			seen := make(map[int]bool)
			for _, v := range got {
				if v < 0 || v >= tt.n {
					t.Errorf("index %d out of range", v)
				}
				if seen[v] {
					t.Errorf("index %d drawn twice", v)
				}
				seen[v] = true
			}
		})
	}
}

func TestNormalMoments(t *testing.T) {
	g := New(11)
	xs := g.Normals(100, 10, 50000)
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if math.Abs(mean-100) > 0.5 {
		t.Errorf("mean = %v, want ~100", mean)
	}
}

func TestUniformBounds(t *testing.T) {
	g := New(5)
	for i := 0; i < 1000; i++ {
		v := g.Uniform(2000, 5000)
		if v < 2000 || v >= 5000 {
			t.Fatalf("Uniform out of range: %v", v)
		}
	}
}
