package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
)

// ErrRunNotFound indicates a run id with no stored metadata.
var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	binsFile     = "bins.csv"
	scanFile     = "scan.csv"
)

// Run kinds.
const (
	KindRun   = "run"
	KindSweep = "sweep"
	KindScan  = "scan"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Dir returns the directory of a run.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Kind        string             `json:"kind"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Size        int                `json:"size"`
	Kernel      string             `json:"kernel"`
	Observable  string             `json:"observable,omitempty"`
	Temperature float64            `json:"temperature"`
	Steps       int                `json:"steps"`
	Samples     int                `json:"samples"`
	Summary     map[string]float64 `json:"summary,omitempty"`
}

func (m RunMetadata) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", m.ID),
		slog.String("kind", m.Kind),
		slog.Int("size", m.Size),
		slog.String("kernel", m.Kernel),
		slog.Int("samples", m.Samples),
	)
}

// Save stores a live or sweep run with its accumulator bins and returns the
// run id.
func (s *Store) Save(meta RunMetadata, bins []BinRecord) (string, error) {
	if meta.Kind == "" {
		meta.Kind = KindRun
	}
	runDir, err := s.create(&meta)
	if err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, binsFile), &bins); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// SaveScan stores a batch scan and returns the run id.
func (s *Store) SaveScan(meta RunMetadata, records []ScanRecord) (string, error) {
	meta.Kind = KindScan
	runDir, err := s.create(&meta)
	if err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, scanFile), &records); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// create allocates a run directory named <kind>_<unix> and writes the
// metadata. Collisions within one second get a numeric suffix.
func (s *Store) create(meta *RunMetadata) (string, error) {
	now := time.Now()
	base := fmt.Sprintf("%s_%d", meta.Kind, now.Unix())
	runID := base
	for n := 2; ; n++ {
		err := os.Mkdir(filepath.Join(s.baseDir, runID), 0755)
		if err == nil {
			break
		}
		if errors.Is(err, fs.ErrNotExist) {
			if err := s.Init(); err != nil {
				return "", err
			}
			continue
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
		runID = fmt.Sprintf("%s_%d", base, n)
	}

	meta.ID = runID
	meta.Timestamp = now
	runDir := s.Dir(runID)

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}
	return runDir, nil
}

func writeCSV(path string, rows any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(rows, f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// List returns all runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", runID, err)
	}
	return &meta, nil
}

// LoadBins reads bins.csv of a run.
func (s *Store) LoadBins(runID string) ([]BinRecord, error) {
	var bins []BinRecord
	if err := s.readCSV(runID, binsFile, &bins); err != nil {
		return nil, err
	}
	return bins, nil
}

// LoadScan reads scan.csv of a run.
func (s *Store) LoadScan(runID string) ([]ScanRecord, error) {
	var records []ScanRecord
	if err := s.readCSV(runID, scanFile, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) readCSV(runID, name string, out any) error {
	f, err := os.Open(filepath.Join(s.Dir(runID), name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s", ErrRunNotFound, runID, name)
		}
		return err
	}
	defer f.Close()
	if err := gocsv.UnmarshalFile(f, out); err != nil {
		return fmt.Errorf("read %s/%s: %w", runID, name, err)
	}
	return nil
}
