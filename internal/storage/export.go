package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/clothsim/internal/sim"
)

type ExportData struct {
	Scene       string             `json:"scene"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Cols        int                `json:"cols"`
	Rows        int                `json:"rows"`
	Steps       int                `json:"steps"`
	Times       []float64          `json:"times"`
	Energy      []float64          `json:"energy"`
	DeviceForce [][3]float64       `json:"device_force"`
	Positions   [][]float64        `json:"positions"`
	Metrics     map[string]float64 `json:"metrics"`
}

func NewExportData(info RunInfo, result *sim.Result) ExportData {
	data := ExportData{
		Scene:       info.Scene,
		Dt:          info.Dt,
		Duration:    info.Duration,
		Steps:       result.StepsTaken,
		Times:       result.Times,
		Energy:      result.Energy,
		DeviceForce: make([][3]float64, len(result.DeviceForces)),
		Positions:   make([][]float64, len(result.Frames)),
		Metrics:     result.Metrics,
	}
	if len(result.Frames) > 0 {
		data.Cols, data.Rows = result.Frames[0].Cols, result.Frames[0].Rows
	}
	for i, f := range result.DeviceForces {
		data.DeviceForce[i] = f
	}
	for i, f := range result.Frames {
		data.Positions[i] = f.Flatten()
	}
	return data
}

// WriteJSON encodes the run as indented JSON.
func WriteJSON(w io.Writer, info RunInfo, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(info, result))
}

func ExportJSON(path string, info RunInfo, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, info, result)
}

func ExportJSONStdout(info RunInfo, result *sim.Result) error {
	return WriteJSON(os.Stdout, info, result)
}
