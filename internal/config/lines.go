package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Line is one commuter rail line whose timetable is published per direction
type Line struct {
	Slug string `yaml:"slug" validate:"required"`
	Name string `yaml:"name" validate:"required"`
}

// LineCatalogue is the root of the lines YAML file
type LineCatalogue struct {
	Lines []Line `yaml:"lines" validate:"required,min=1,dive"`
}

// DefaultLines are the MARC lines, in the order their timetables are merged
func DefaultLines() []Line {
	return []Line{
		{Slug: "marc-penn", Name: "Penn Line"},
		{Slug: "marc-camden", Name: "Camden Line"},
		{Slug: "marc-brunswick", Name: "Brunswick Line"},
	}
}

// LoadLines reads the line catalogue from path. An empty path yields the defaults.
func LoadLines(path string) ([]Line, error) {
	if path == "" {
		return DefaultLines(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lines file: %w", err)
	}

	var catalogue LineCatalogue
	if err := yaml.Unmarshal(data, &catalogue); err != nil {
		return nil, fmt.Errorf("failed to parse lines file: %w", err)
	}

	if err := validator.New().Struct(catalogue); err != nil {
		return nil, fmt.Errorf("invalid lines file: %w", err)
	}

	return catalogue.Lines, nil
}
