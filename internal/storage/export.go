package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/heatbmi/internal/sim"
	"github.com/spf13/afero"
)

type ExportData struct {
	Model    string             `json:"model"`
	Variable string             `json:"variable"`
	Shape    []int              `json:"shape"`
	TimeStep float64            `json:"time_step"`
	Until    float64            `json:"until"`
	Steps    int                `json:"steps"`
	Times    []float64          `json:"times"`
	Fields   [][]float64        `json:"fields"`
	Metrics  map[string]float64 `json:"metrics"`
}

func newExportData(model string, timeStep, until float64, result *sim.Result) ExportData {
	data := ExportData{
		Model:    model,
		Variable: result.Variable,
		Shape:    result.Shape,
		TimeStep: timeStep,
		Until:    until,
		Steps:    result.StepsTaken,
		Times:    result.Times,
		Fields:   make([][]float64, len(result.Fields)),
		Metrics:  result.Metrics,
	}
	for i, f := range result.Fields {
		data.Fields[i] = f
	}
	return data
}

// ExportJSON writes the run as indented JSON to path on fs.
func ExportJSON(fs afero.Fs, path, model string, timeStep, until float64, result *sim.Result) error {
	file, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, model, timeStep, until, result)
}

// WriteJSON writes the run as indented JSON to w.
func WriteJSON(w io.Writer, model string, timeStep, until float64, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(model, timeStep, until, result))
}
