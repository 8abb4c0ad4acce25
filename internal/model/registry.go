package model

import (
	"errors"
	"fmt"
	"sort"
)

// ConstantMap is the registry of a model's constants, keyed by name. It owns
// its tensors: Close releases every entry. Instances may be shared across
// models via UpdateConstantsMap; the registry is read-only during execution
// and its lifetime is the longest of all holders.
type ConstantMap struct {
	m map[string]*OwnedTensor
}

func NewConstantMap() *ConstantMap {
	return &ConstantMap{m: make(map[string]*OwnedTensor)}
}

// Insert moves ownership of t's tensor into the registry under name, leaving
// t empty. Duplicate names are rejected, in which case t keeps its tensor.
func (c *ConstantMap) Insert(name string, t *OwnedTensor) error {
	if _, ok := c.m[name]; ok {
		return fmt.Errorf("constant %q already registered", name)
	}
	owned := t.MoveOut()
	c.m[name] = &owned
	return nil
}

func (c *ConstantMap) Get(name string) (*OwnedTensor, bool) {
	t, ok := c.m[name]
	return t, ok
}

func (c *ConstantMap) Len() int {
	return len(c.m)
}

func (c *ConstantMap) Names() []string {
	names := make([]string, 0, len(c.m))
	for name := range c.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases every entry. Entries already released are skipped; the map
// is empty afterwards.
func (c *ConstantMap) Close() error {
	var errs []error
	for name, t := range c.m {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("constant %q: %w", name, err))
		}
	}
	c.m = make(map[string]*OwnedTensor)
	return errors.Join(errs...)
}
