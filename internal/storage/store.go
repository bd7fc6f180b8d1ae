// Package storage keeps finished runs on disk, one directory per run holding
// metadata.json and field.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/heatbmi/internal/config"
	"github.com/san-kum/heatbmi/internal/sim"
	"github.com/spf13/afero"
)

const (
	metadataFile = "metadata.json"
	fieldFile    = "field.csv"
)

var (
	ErrRunNotFound  = errors.New("storage: run not found")
	ErrAmbiguousRun = errors.New("storage: run id prefix is ambiguous")
)

type Store struct {
	fs      afero.Fs
	baseDir string
	now     func() time.Time
}

func New(fs afero.Fs, baseDir string) *Store {
	return &Store{fs: fs, baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return s.fs.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Variable  string             `json:"variable"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Config    config.Config      `json:"config"`
	TimeStep  float64            `json:"time_step"`
	Until     float64            `json:"until"`
	Steps     int                `json:"steps"`
	Shape     []int              `json:"shape"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Run describes a finished simulation to be saved.
type Run struct {
	Model    string
	Seed     int64
	Config   config.Config
	TimeStep float64
	Until    float64
	Result   *sim.Result
}

// Save writes run under a fresh id and returns the id.
func (s *Store) Save(run Run) (string, error) {
	if run.Result == nil {
		return "", fmt.Errorf("storage: run has no result")
	}
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := s.fs.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Model:     run.Model,
		Variable:  run.Result.Variable,
		Timestamp: s.now(),
		Seed:      run.Seed,
		Config:    run.Config,
		TimeStep:  run.TimeStep,
		Until:     run.Until,
		Steps:     run.Result.StepsTaken,
		Shape:     run.Result.Shape,
		Metrics:   run.Result.Metrics,
	}

	if err := s.writeMetadata(runDir, meta); err != nil {
		return "", err
	}
	if err := s.writeFields(runDir, run.Result); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) writeMetadata(runDir string, meta RunMetadata) error {
	metaFile, err := s.fs.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// writeFields stores one row per snapshot: the time, then the field values
// in row-major order.
func (s *Store) writeFields(runDir string, result *sim.Result) error {
	csvFile, err := s.fs.Create(filepath.Join(runDir, fieldFile))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)

	if len(result.Fields) > 0 {
		header := []string{"time"}
		for i := range result.Fields[0] {
			header = append(header, fmt.Sprintf("v%d", i))
		}
		if err := w.Write(header); err != nil {
			return err
		}
	}

	for i, field := range result.Fields {
		row := make([]string, 0, len(field)+1)
		row = append(row, strconv.FormatFloat(result.Times[i], 'g', -1, 64))
		for _, val := range field {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := afero.ReadDir(s.fs, s.baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
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

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

// Resolve expands a unique prefix of a run id to the full id.
func (s *Store) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", ErrRunNotFound
	}
	runs, err := s.List()
	if err != nil {
		return "", err
	}

	var match string
	for _, run := range runs {
		if run.ID == prefix {
			return run.ID, nil
		}
		if strings.HasPrefix(run.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, prefix)
			}
			match = run.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	}
	return match, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: run %s: %w", runID, err)
	}

	return &meta, nil
}

// LoadFields reads back the snapshots saved with a run.
func (s *Store) LoadFields(runID string) ([]sim.Field, []float64, error) {
	file, err := s.fs.Open(filepath.Join(s.baseDir, runID, fieldFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return []sim.Field{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	fields := make([]sim.Field, 0, len(records)-1)

	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: %s row %d: %w", fieldFile, i+1, err)
		}

		field := make(sim.Field, len(record)-1)
		for j, cell := range record[1:] {
			if field[j], err = strconv.ParseFloat(cell, 64); err != nil {
				return nil, nil, fmt.Errorf("storage: %s row %d: %w", fieldFile, i+1, err)
			}
		}

		times = append(times, t)
		fields = append(fields, field)
	}

	return fields, times, nil
}

// Delete removes a run and everything saved with it.
func (s *Store) Delete(runID string) error {
	runDir := filepath.Join(s.baseDir, runID)
	if ok, err := afero.DirExists(s.fs, runDir); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return s.fs.RemoveAll(runDir)
}
