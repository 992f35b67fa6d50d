package geo

import (
	"errors"
	"testing"
)

// spiked returns a grid of ones with one high and one low cell, plus a NaN.
func spiked(t *testing.T) *Grid {
	t.Helper()
	return mustGrid(t, [][]float64{
		{1, 1, 1, 1},
		{1, 9, 1, 1},
		{1, 1, -7, 1},
		{nan, 1, 1, 1},
	})
}

// ---------------------------------------------------------------------------
// DetectHotspots
// ---------------------------------------------------------------------------

func TestDetectHotspots_ZScore(t *testing.T) {
	res, err := DetectHotspots(spiked(t), MethodZScore, 1.5)
	if err != nil {
		t.Fatalf("DetectHotspots: %v", err)
	}
	if !res.Hotspots.At(1, 1) {
		t.Error("high spike not flagged as hotspot")
	}
	if !res.Coldspots.At(2, 2) {
		t.Error("low spike not flagged as coldspot")
	}
	if res.NHotspots != 1 || res.NColdspots != 1 {
		t.Errorf("counts = %d/%d, want 1/1", res.NHotspots, res.NColdspots)
	}
	if res.MeanHot != 9 || res.MeanCold != -7 {
		t.Errorf("mask means = %g/%g, want 9/-7", res.MeanHot, res.MeanCold)
	}
	if !res.MeanHotDefined || !res.MeanColdDefined {
		t.Error("mask means not marked defined despite flagged cells")
	}
	if res.NValid != 15 {
		t.Errorf("NValid = %d, want 15", res.NValid)
	}
}

func TestDetectHotspots_MasksDisjointAndRespectValidity(t *testing.T) {
	g := spiked(t)
	for _, method := range []HotspotMethod{MethodZScore, MethodPercentile, MethodIQR} {
		threshold := 1.5
		if method == MethodPercentile {
			threshold = 10
		}
		res, err := DetectHotspots(g, method, threshold)
		if err != nil {
			t.Fatalf("%v: %v", method, err)
		}
		for i := range res.Hotspots.Data {
			if res.Hotspots.Data[i] && res.Coldspots.Data[i] {
				t.Errorf("%v: cell %d in both masks", method, i)
			}
		}
		if res.Hotspots.At(3, 0) || res.Coldspots.At(3, 0) {
			t.Errorf("%v: invalid cell flagged", method)
		}
	}
}

func TestDetectHotspots_Percentile(t *testing.T) {
	res, err := DetectHotspots(grid16(t), MethodPercentile, 10)
	if err != nil {
		t.Fatalf("DetectHotspots: %v", err)
	}
	// p90 of 1..16 is 14.5; p10 is 2.5.
	if res.NHotspots != 2 {
		t.Errorf("NHotspots = %d, want 2 (cells 15 and 16)", res.NHotspots)
	}
	if res.NColdspots != 2 {
		t.Errorf("NColdspots = %d, want 2 (cells 1 and 2)", res.NColdspots)
	}
}

func TestDetectHotspots_IQR(t *testing.T) {
	res, err := DetectHotspots(spiked(t), MethodIQR, 1.5)
	if err != nil {
		t.Fatalf("DetectHotspots: %v", err)
	}
	// Q1 == Q3 == 1, so any deviation from 1 is flagged.
	if !res.Hotspots.At(1, 1) || !res.Coldspots.At(2, 2) {
		t.Error("IQR policy missed the spikes")
	}
}

func TestDetectHotspots_FlatSurfaceFlagsNothing(t *testing.T) {
	g := mustGrid(t, [][]float64{{2, 2}, {2, 2}})
	res, err := DetectHotspots(g, MethodZScore, 1.5)
	if err != nil {
		t.Fatalf("DetectHotspots: %v", err)
	}
	if res.NHotspots != 0 || res.NColdspots != 0 {
		t.Errorf("flat surface flagged %d/%d cells", res.NHotspots, res.NColdspots)
	}
	if res.MeanHotDefined || res.MeanColdDefined {
		t.Error("mask means marked defined with empty masks")
	}
}

func TestDetectHotspots_SinglePointIsNeverExtreme(t *testing.T) {
	g := NewGrid(5, 5)
	g.Set(2, 2, 7)

	for _, method := range []HotspotMethod{MethodZScore, MethodPercentile, MethodIQR} {
		res, err := DetectHotspots(g, method, 1.5)
		if err != nil {
			t.Fatalf("%v: %v", method, err)
		}
		if res.NHotspots != 0 || res.NColdspots != 0 {
			t.Errorf("%v: single cell flagged %d/%d", method, res.NHotspots, res.NColdspots)
		}
	}
}

func TestDetectHotspots_NoData(t *testing.T) {
	_, err := DetectHotspots(NewGrid(3, 3), MethodZScore, 1.5)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestDetectHotspots_UnknownMethod(t *testing.T) {
	_, err := DetectHotspots(grid16(t), HotspotMethod(42), 1.5)
	if !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("err = %v, want ErrUnknownMethod", err)
	}
}

func TestParseHotspotMethod(t *testing.T) {
	for tag, want := range map[string]HotspotMethod{
		"zscore":     MethodZScore,
		"percentile": MethodPercentile,
		"iqr":        MethodIQR,
	} {
		got, err := ParseHotspotMethod(tag)
		if err != nil || got != want {
			t.Errorf("ParseHotspotMethod(%q) = %v, %v", tag, got, err)
		}
	}
	if _, err := ParseHotspotMethod("mystery"); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("unknown tag: err = %v, want ErrUnknownMethod", err)
	}
}
