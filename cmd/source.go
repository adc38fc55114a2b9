package cmd

import (
	"fmt"

	"github.com/gofmu/gofmu/fmi"
	"github.com/gofmu/gofmu/fmi/modelfile"
	"github.com/gofmu/gofmu/models"
)

// modelSource makes fresh models of one kind: a built-in from the catalog or
// a YAML or HCL model file. Every instance gets its own model value.
type modelSource struct {
	name     string
	version  fmi.Version
	newModel func() fmi.Model
}

// resolveSource picks the model named by exactly one of --model and --file.
// An empty version selects the model's default.
func resolveSource(modelName, file, version string) (*modelSource, error) {
	if (modelName == "") == (file == "") {
		return nil, fmt.Errorf("exactly one of --model or --file is required")
	}
	var want fmi.Version
	if version != "" {
		v, err := fmi.ParseVersion(version)
		if err != nil {
			return nil, err
		}
		want = v
	}

	if modelName != "" {
		e, err := models.Lookup(modelName)
		if err != nil {
			return nil, err
		}
		if want == 0 {
			want = e.DefaultVersion()
		}
		if !e.Supports(want) {
			return nil, fmt.Errorf("model %s cannot be described in FMI %s", e.Name, want)
		}
		return &modelSource{name: e.Name, version: want, newModel: e.New}, nil
	}

	f, err := modelfile.Open(file)
	if err != nil {
		return nil, err
	}
	if want == 0 {
		if want, err = f.Version(); err != nil {
			return nil, err
		}
	}
	return &modelSource{
		name:     f.Name,
		version:  want,
		newModel: func() fmi.Model { return modelfile.NewStatic(f) },
	}, nil
}

// instantiate creates one instance of the source.
func (s *modelSource) instantiate(name string) (*fmi.Instance, error) {
	return fmi.Instantiate(name, s.newModel(), s.version)
}
