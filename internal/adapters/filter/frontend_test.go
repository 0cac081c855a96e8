package filter

import (
	"math"
	"testing"
	"time"

	"github.com/mbadapanda2022/ACS-Laptop-Debug-Analyzer/internal/domain"
)

func batchWith(values ...float64) *domain.SampleBatch {
	return &domain.SampleBatch{
		StartIndex: 100,
		Timestamp:  time.Now(),
		Samples:    map[int][]float64{0: values},
	}
}

func TestFrontEndGroundsGNDCoupling(t *testing.T) {
	b := batchWith(1, 2, 3, 4)
	out, err := NewFrontEnd().Apply(b, []domain.Channel{{Index: 0, Coupling: domain.CouplingGND}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for i, v := range out.Samples[0] {
		if v != 0 {
			t.Fatalf("sample %d = %v, want 0", i, v)
		}
	}
	if out.StartIndex != 100 {
		t.Fatalf("start index = %d, want 100", out.StartIndex)
	}
}

func TestFrontEndACCouplingRemovesOffset(t *testing.T) {
	b := batchWith(4, 6, 4, 6)
	out, err := NewFrontEnd().Apply(b, []domain.Channel{{Index: 0, Coupling: domain.CouplingAC}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := []float64{-1, 1, -1, 1}
	for i, v := range out.Samples[0] {
		if math.Abs(v-want[i]) > 1e-12 {
			t.Fatalf("sample %d = %v, want %v", i, v, want[i])
		}
	}
}

func TestFrontEndBandwidthLimitSmoothsSpike(t *testing.T) {
	b := batchWith(0, 0, 9, 0, 0)
	out, err := NewFrontEnd().Apply(b, []domain.Channel{{
		Index: 0, Coupling: domain.CouplingDC, BandwidthLimit: true,
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	got := out.Samples[0]
	if len(got) != 5 {
		t.Fatalf("length changed to %d", len(got))
	}
	if got[2] >= 9 {
		t.Fatalf("spike not attenuated: %v", got[2])
	}
	if got[1] == 0 || got[3] == 0 {
		t.Fatalf("spike energy not spread: %v", got)
	}
}

func TestFrontEndDCCouplingPassesThrough(t *testing.T) {
	b := batchWith(1.5, 2.5, 3.5)
	out, err := NewFrontEnd().Apply(b, []domain.Channel{{Index: 0, Coupling: domain.CouplingDC}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := []float64{1.5, 2.5, 3.5}
	for i, v := range out.Samples[0] {
		if v != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, v, want[i])
		}
	}
}

func TestFrontEndVersion(t *testing.T) {
	if v := NewFrontEnd().Version(); v != 1 {
		t.Fatalf("version = %d, want 1", v)
	}
}
