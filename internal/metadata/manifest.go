// Package metadata loads compiled-model manifests. Generated model packages
// carry these tables in code; the JSON manifest form lets cmd tooling drive
// the runtime against a constants.bin without generated code.
package metadata

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/23skdu/longbow-bodkin/internal/abi"
)

type Param struct {
	Name string `json:"name"`
}

type Const struct {
	Name          string  `json:"name"`
	Shape         []int64 `json:"shape"`
	Stride        []int64 `json:"stride"`
	Dtype         string  `json:"dtype"`
	StorageOffset int64   `json:"storage_offset"`
	DataSize      int64   `json:"data_size"`
}

type Manifest struct {
	Name      string  `json:"name"`
	Inputs    []Param `json:"inputs"`
	Outputs   []Param `json:"outputs"`
	Constants []Const `json:"constants"`
	InSpec    string  `json:"in_spec"`
	OutSpec   string  `json:"out_spec"`
}

func Load(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	m, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

func (m *Manifest) Validate() error {
	seen := make(map[string]struct{}, len(m.Constants))
	for i, c := range m.Constants {
		if c.Name == "" {
			return fmt.Errorf("constant %d: empty name", i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("constant %d: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = struct{}{}
		if len(c.Shape) != len(c.Stride) {
			return fmt.Errorf("constant %q: rank mismatch (shape %d, stride %d)", c.Name, len(c.Shape), len(c.Stride))
		}
		for _, d := range c.Shape {
			if d < 0 {
				return fmt.Errorf("constant %q: negative dimension %d", c.Name, d)
			}
		}
		if c.DataSize < 0 {
			return fmt.Errorf("constant %q: negative data_size %d", c.Name, c.DataSize)
		}
		if _, err := abi.ParseDtype(c.Dtype); err != nil {
			return fmt.Errorf("constant %q: %w", c.Name, err)
		}
	}
	for i, p := range m.Inputs {
		if p.Name == "" {
			return fmt.Errorf("input %d: empty name", i)
		}
	}
	for i, p := range m.Outputs {
		if p.Name == "" {
			return fmt.Errorf("output %d: empty name", i)
		}
	}
	return nil
}

// DtypeOf returns the ABI code for a validated constant.
func (c *Const) DtypeOf() abi.Dtype {
	d, err := abi.ParseDtype(c.Dtype)
	if err != nil {
		return abi.DtypeFloat32
	}
	return d
}
