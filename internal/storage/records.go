package storage

import (
	"math"

	"github.com/san-kum/xysim/internal/observable"
	"github.com/san-kum/xysim/internal/scan"
)

// BinRecord is one row of bins.csv. NaN in Mean or Response means the bin
// is unpublishable (empty, zero sum or zero variance).
type BinRecord struct {
	Bin      int     `csv:"bin"`
	T        float64 `csv:"T"`
	Count    int     `csv:"count"`
	Mean     float64 `csv:"mean"`
	Response float64 `csv:"response"`
}

// ScanRecord is one row of scan.csv.
type ScanRecord struct {
	T              float64 `csv:"T"`
	Energy         float64 `csv:"energy"`
	Magnetization  float64 `csv:"magnetization"`
	SpecificHeat   float64 `csv:"specific_heat"`
	Susceptibility float64 `csv:"susceptibility"`
}

// BinRecords flattens every accumulator bin.
func BinRecords(acc *observable.Accumulator) []BinRecord {
	bins := acc.Bins()
	out := make([]BinRecord, len(bins))
	for i, b := range bins {
		rec := BinRecord{
			Bin:      i,
			T:        observable.BinTemperature(i),
			Count:    b.Count,
			Mean:     math.NaN(),
			Response: math.NaN(),
		}
		if m, ok := b.Mean(); ok {
			rec.Mean = m
		}
		if b.HasResponse() {
			rec.Response = b.Response
		}
		out[i] = rec
	}
	return out
}

// ScanRecords converts scan points to rows.
func ScanRecords(points []scan.Point) []ScanRecord {
	out := make([]ScanRecord, len(points))
	for i, p := range points {
		out[i] = ScanRecord(p)
	}
	return out
}

// Points converts rows back to scan points.
func Points(records []ScanRecord) []scan.Point {
	out := make([]scan.Point, len(records))
	for i, r := range records {
		out[i] = scan.Point(r)
	}
	return out
}

// Series splits bin records into per-bin curves with nil for null entries,
// indexed by bin.
func Series(records []BinRecord) (means, responses []*float64) {
	means = make([]*float64, observable.Bins)
	responses = make([]*float64, observable.Bins)
	for _, r := range records {
		if r.Bin < 0 || r.Bin >= observable.Bins {
			continue
		}
		means[r.Bin] = nullable(r.Mean)
		responses[r.Bin] = nullable(r.Response)
	}
	return means, responses
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
