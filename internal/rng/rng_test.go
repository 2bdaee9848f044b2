package rng

import (
	"math"
	"testing"
)

func TestSameSeedSameDraws(t *testing.T) {
	a := New(42)
	b := New(42)

	for i := 0; i < 100; i++ {
		if got, want := a.Stream("arrival").Uniform(), b.Stream("arrival").Uniform(); got != want {
			t.Fatalf("draw %d: %v != %v", i, got, want)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := New(1)
	b := New(2)

	same := true
	for i := 0; i < 10; i++ {
		if a.Stream("x").Uniform() != b.Stream("x").Uniform() {
			same = false
			break
		}
	}
	if same {
		t.Fatal("streams from different seeds produced identical draws")
	}
}

// A stream's sequence must depend only on its own draw count, never on
// activity in sibling streams.
func TestStreamIndependence(t *testing.T) {
	clean := New(7)
	var want []float64
	for i := 0; i < 50; i++ {
		want = append(want, clean.Stream("target").Uniform())
	}

	noisy := New(7)
	for i := 0; i < 50; i++ {
		noisy.Stream("other").Uniform()
		noisy.Stream("another").Exponential(1.5)
		if got := noisy.Stream("target").Uniform(); got != want[i] {
			t.Fatalf("draw %d: interleaved streams perturbed target: %v != %v", i, got, want[i])
		}
	}
}

func TestStreamCreationOrderIrrelevant(t *testing.T) {
	a := New(9)
	a.Stream("first")
	first := a.Stream("second").Uniform()

	b := New(9)
	b.Stream("second") // created before "first" this time
	b.Stream("first")
	if got := b.Stream("second").Uniform(); got != first {
		t.Fatalf("creation order changed stream seed: %v != %v", got, first)
	}
}

func TestStreamName(t *testing.T) {
	if got := New(1).Stream("arrival-times").Name(); got != "arrival-times" {
		t.Fatalf("Name() = %q, want the purpose the stream was created under", got)
	}
}

func TestUniformRange(t *testing.T) {
	st := New(3).Stream("u")
	for i := 0; i < 1000; i++ {
		v := st.UniformRange(2.5, 7.5)
		if v < 2.5 || v >= 7.5 {
			t.Fatalf("draw %v outside [2.5, 7.5)", v)
		}
	}
}

func TestIntInRangeBounds(t *testing.T) {
	st := New(3).Stream("i")
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		v := st.IntInRange(0, 4)
		if v < 0 || v > 4 {
			t.Fatalf("draw %d outside [0, 4]", v)
		}
		seen[v] = true
	}
	for v := 0; v <= 4; v++ {
		if !seen[v] {
			t.Errorf("value %d never drawn in 1000 tries", v)
		}
	}
}

func TestFuzz(t *testing.T) {
	st := New(5).Stream("f")

	if got := st.Fuzz(12.0, 0); got != 12.0 {
		t.Fatalf("Fuzz with zero fraction = %v, want mean", got)
	}

	// 95% of draws land within mean +/- mean*frac; over 2000 draws we
	// allow a generous margin.
	const mean, frac = 10.0, 0.2
	inside := 0
	for i := 0; i < 2000; i++ {
		v := st.Fuzz(mean, frac)
		if math.Abs(v-mean) <= mean*frac {
			inside++
		}
	}
	if ratio := float64(inside) / 2000; ratio < 0.90 || ratio > 0.99 {
		t.Fatalf("fraction inside mean±mean·frac = %v, want about 0.95", ratio)
	}
}

func TestExponentialPositive(t *testing.T) {
	st := New(11).Stream("e")
	sum := 0.0
	for i := 0; i < 2000; i++ {
		v := st.Exponential(0.5)
		if v < 0 {
			t.Fatalf("negative exponential draw %v", v)
		}
		sum += v
	}
	if mean := sum / 2000; mean < 1.7 || mean > 2.3 {
		t.Fatalf("exponential(rate=0.5) sample mean %v, want near 2", mean)
	}
}

func TestGammaPositive(t *testing.T) {
	st := New(13).Stream("g")
	sum := 0.0
	for i := 0; i < 2000; i++ {
		v := st.Gamma(2, 3)
		if v <= 0 {
			t.Fatalf("nonpositive gamma draw %v", v)
		}
		sum += v
	}
	// shape*scale = 6
	if mean := sum / 2000; mean < 5.4 || mean > 6.6 {
		t.Fatalf("gamma(2, 3) sample mean %v, want near 6", mean)
	}
}
