package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/sim"
)

// Fixed columns preceding the flattened node positions in states.csv.
var stateHeader = []string{"time", "energy", "fx", "fy", "fz"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// RunInfo describes the scene a result came from.
type RunInfo struct {
	Scene    string
	Dt       float64
	Duration float64
	Pinning  string
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scene     string             `json:"scene"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Cols      int                `json:"cols"`
	Rows      int                `json:"rows"`
	Pinning   string             `json:"pinning"`
	Fixed     []int              `json:"fixed"`
	Frames    int                `json:"frames"`
	Steps     int                `json:"steps"`
	Metrics   map[string]float64 `json:"metrics"`
	Errors    []string           `json:"errors,omitempty"`
}

func (s *Store) Save(info RunInfo, result *sim.Result) (string, error) {
	if len(result.Frames) == 0 {
		return "", errors.New("result has no frames")
	}
	runID, runDir, err := s.newRunDir(info.Scene)
	if err != nil {
		return "", err
	}

	first := result.Frames[0]
	meta := RunMetadata{
		ID:        runID,
		Scene:     info.Scene,
		Timestamp: time.Now(),
		Dt:        info.Dt,
		Duration:  info.Duration,
		Cols:      first.Cols,
		Rows:      first.Rows,
		Pinning:   info.Pinning,
		Fixed:     fixedIndices(first),
		Frames:    len(result.Frames),
		Steps:     result.StepsTaken,
		Metrics:   result.Metrics,
	}
	for _, e := range result.Errors {
		meta.Errors = append(meta.Errors, e.Error())
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "states.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result); err != nil {
		return "", err
	}
	return runID, nil
}

// WriteCSV writes one row per recorded frame: time, energy, the device
// force, then x, y, z for every node.
func WriteCSV(out io.Writer, result *sim.Result) error {
	if len(result.Frames) == 0 {
		return errors.New("result has no frames")
	}
	w := csv.NewWriter(out)

	header := append([]string(nil), stateHeader...)
	for i := range result.Frames[0].Positions {
		header = append(header, fmt.Sprintf("x%d", i), fmt.Sprintf("y%d", i), fmt.Sprintf("z%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, f := range result.Frames {
		var energy float64
		var device mgl64.Vec3
		if i < len(result.Energy) {
			energy = result.Energy[i]
		}
		if i < len(result.DeviceForces) {
			device = result.DeviceForces[i]
		}
		row := []string{
			strconv.FormatFloat(f.Time, 'f', 6, 64),
			strconv.FormatFloat(energy, 'g', 10, 64),
			strconv.FormatFloat(device[0], 'g', 10, 64),
			strconv.FormatFloat(device[1], 'g', 10, 64),
			strconv.FormatFloat(device[2], 'g', 10, 64),
		}
		for _, p := range f.Positions {
			for _, val := range p {
				row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func (s *Store) newRunDir(scene string) (string, string, error) {
	if scene == "" {
		scene = "run"
	}
	base := fmt.Sprintf("%s_%d", scene, time.Now().Unix())
	runID := base
	for i := 1; ; i++ {
		runDir := filepath.Join(s.baseDir, runID)
		if _, err := os.Stat(runDir); os.IsNotExist(err) {
			if err := os.MkdirAll(runDir, 0755); err != nil {
				return "", "", err
			}
			return runID, runDir, nil
		}
		runID = fmt.Sprintf("%s_%d", base, i)
	}
}

// List returns the stored runs, newest first.
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

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// Info recovers the scene description a run was saved with.
func (m *RunMetadata) Info() RunInfo {
	return RunInfo{Scene: m.Scene, Dt: m.Dt, Duration: m.Duration, Pinning: m.Pinning}
}

// Series is a run read back from states.csv.
type Series struct {
	Times       []float64
	Energy      []float64
	DeviceForce []mgl64.Vec3
	Frames      []*cloth.Snapshot
}

// LoadStates reads a run's recorded frames.
func (s *Store) LoadStates(runID string) (*Series, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := &Series{}
	if len(records) < 2 {
		return out, nil
	}

	nodes := meta.Cols * meta.Rows
	fixed := make([]bool, nodes)
	for _, i := range meta.Fixed {
		if i >= 0 && i < nodes {
			fixed[i] = true
		}
	}

	for line, record := range records[1:] {
		if len(record) != len(stateHeader)+3*nodes {
			return nil, fmt.Errorf("states.csv line %d: expected %d fields, got %d", line+2, len(stateHeader)+3*nodes, len(record))
		}
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("states.csv line %d: %w", line+2, err)
			}
			vals[j] = v
		}

		snap := &cloth.Snapshot{
			Tick:       line,
			Time:       vals[0],
			Cols:       meta.Cols,
			Rows:       meta.Rows,
			Positions:  make([]mgl64.Vec3, nodes),
			Velocities: make([]mgl64.Vec3, nodes),
			Fixed:      fixed,
		}
		pos := vals[len(stateHeader):]
		for i := range snap.Positions {
			snap.Positions[i] = mgl64.Vec3{pos[3*i], pos[3*i+1], pos[3*i+2]}
		}

		out.Times = append(out.Times, vals[0])
		out.Energy = append(out.Energy, vals[1])
		out.DeviceForce = append(out.DeviceForce, mgl64.Vec3{vals[2], vals[3], vals[4]})
		out.Frames = append(out.Frames, snap)
	}

	return out, nil
}

// Result rebuilds a sim.Result from the series for the analysis and export
// code. Velocities are not stored, so they are estimated by differencing
// consecutive frames.
func (s *Series) Result(meta *RunMetadata) *sim.Result {
	r := &sim.Result{
		Frames:       s.Frames,
		Times:        s.Times,
		Energy:       s.Energy,
		DeviceForces: s.DeviceForce,
		Metrics:      meta.Metrics,
		StepsTaken:   meta.Steps,
	}
	for i := 1; i < len(s.Frames); i++ {
		dt := s.Times[i] - s.Times[i-1]
		if dt <= 0 {
			continue
		}
		prev, cur := s.Frames[i-1], s.Frames[i]
		for j := range cur.Positions {
			cur.Velocities[j] = cur.Positions[j].Sub(prev.Positions[j]).Mul(1 / dt)
		}
	}
	if len(s.Frames) > 1 {
		copy(s.Frames[0].Velocities, s.Frames[1].Velocities)
	}
	return r
}

func fixedIndices(s *cloth.Snapshot) []int {
	out := make([]int, 0)
	for i, f := range s.Fixed {
		if f {
			out = append(out, i)
		}
	}
	return out
}
