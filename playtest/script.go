package playtest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Script è una partita scritta a mano: la storia da caricare e la sequenza
// di choice con le attese dopo ogni passo.
//
//	name: la via del tesoro
//	story: ../stories/dungeon.json
//	start:
//	  scene: entrance
//	  visible: [left, right]
//	steps:
//	  - choose: left
//	    expect:
//	      scene: armory
//	      variables: {gold: 10}
type Script struct {
	Name   string       `yaml:"name"`
	Story  string       `yaml:"story"`
	Strict bool         `yaml:"strict"`
	Start  *Expectation `yaml:"start"`
	Steps  []Step       `yaml:"steps"`
}

// Step è un singolo passo dello script
type Step struct {
	Choose  string `yaml:"choose"`
	Restart bool   `yaml:"restart"`
	// Reject indica che il choice deve essere rifiutato (nascosto o inesistente)
	Reject bool         `yaml:"reject"`
	Expect *Expectation `yaml:"expect"`
}

// Expectation descrive lo stato atteso; i campi vuoti non vengono verificati
type Expectation struct {
	Scene     string         `yaml:"scene"`
	Visible   []string       `yaml:"visible"`
	Variables map[string]any `yaml:"variables"`
	Summary   string         `yaml:"summary"`
	Ended     *bool          `yaml:"ended"`
}

// LoadScript legge e valida uno script YAML
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

// ParseScript decodifica uno script YAML
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("script YAML non valido: %w", err)
	}
	if script.Story == "" {
		return nil, errors.New(`script senza "story"`)
	}
	for i, step := range script.Steps {
		if step.Choose == "" && !step.Restart {
			return nil, fmt.Errorf("step %d: serve \"choose\" oppure \"restart\"", i+1)
		}
		if step.Choose != "" && step.Restart {
			return nil, fmt.Errorf("step %d: \"choose\" e \"restart\" si escludono", i+1)
		}
	}
	return &script, nil
}
