package storage

import (
	"encoding/json"
	"io"
	"math"

	"github.com/gocarina/gocsv"
)

// ExportBin is the JSON form of a BinRecord with nulls instead of NaN.
type ExportBin struct {
	Bin      int      `json:"bin"`
	T        float64  `json:"T"`
	Count    int      `json:"count"`
	Mean     *float64 `json:"mean"`
	Response *float64 `json:"response"`
}

// ExportPoint is the JSON form of a ScanRecord.
type ExportPoint struct {
	T              float64  `json:"T"`
	Energy         float64  `json:"energy"`
	Magnetization  float64  `json:"magnetization"`
	SpecificHeat   *float64 `json:"specific_heat"`
	Susceptibility *float64 `json:"susceptibility"`
}

type ExportData struct {
	Metadata RunMetadata   `json:"metadata"`
	Bins     []ExportBin   `json:"bins,omitempty"`
	Scan     []ExportPoint `json:"scan,omitempty"`
}

// Export collects a run's metadata and rows. Runs carry bins or scan
// points depending on their kind.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	data := &ExportData{Metadata: *meta}

	if meta.Kind == KindScan {
		records, err := s.LoadScan(runID)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			data.Scan = append(data.Scan, ExportPoint{
				T:              r.T,
				Energy:         r.Energy,
				Magnetization:  r.Magnetization,
				SpecificHeat:   nullable(r.SpecificHeat),
				Susceptibility: nullable(r.Susceptibility),
			})
		}
		return data, nil
	}

	bins, err := s.LoadBins(runID)
	if err != nil {
		return nil, err
	}
	for _, b := range bins {
		if b.Count == 0 {
			continue
		}
		data.Bins = append(data.Bins, ExportBin{
			Bin:      b.Bin,
			T:        b.T,
			Count:    b.Count,
			Mean:     nullable(b.Mean),
			Response: nullable(b.Response),
		})
	}
	return data, nil
}

// ExportJSON writes the run as indented JSON.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	data, err := s.Export(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportCSV writes the run's non-empty rows as CSV.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	if meta.Kind == KindScan {
		records, err := s.LoadScan(runID)
		if err != nil {
			return err
		}
		return gocsv.Marshal(&records, w)
	}

	bins, err := s.LoadBins(runID)
	if err != nil {
		return err
	}
	filled := make([]BinRecord, 0, len(bins))
	for _, b := range bins {
		if b.Count > 0 || !math.IsNaN(b.Mean) {
			filled = append(filled, b)
		}
	}
	return gocsv.Marshal(&filled, w)
}
