package model

import (
	"testing"

	"github.com/23skdu/longbow-bodkin/internal/hostabi"
)

func TestConstantMapInsertAndGet(t *testing.T) {
	tab := hostabi.New()
	cm := NewConstantMap()

	weight := Steal(tab, newTestTensor(t, tab))
	if err := cm.Insert("weight", &weight); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	bias := Steal(tab, newTestTensor(t, tab))
	if err := cm.Insert("bias", &bias); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if cm.Len() != 2 {
		t.Errorf("Len = %d, want 2", cm.Len())
	}
	if _, ok := cm.Get("weight"); !ok {
		t.Errorf("Get(weight) missing")
	}
	if _, ok := cm.Get("missing"); ok {
		t.Errorf("Get(missing) should not be found")
	}

	names := cm.Names()
	if len(names) != 2 || names[0] != "bias" || names[1] != "weight" {
		t.Errorf("Names = %v, want [bias weight]", names)
	}
}

func TestConstantMapDuplicateName(t *testing.T) {
	tab := hostabi.New()
	cm := NewConstantMap()
	defer cm.Close()

	w := Steal(tab, newTestTensor(t, tab))
	if err := cm.Insert("w", &w); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	dup := Steal(tab, newTestTensor(t, tab))
	if err := cm.Insert("w", &dup); err == nil {
		t.Errorf("duplicate Insert should fail")
	}
	// A rejected insert leaves ownership with the caller.
	if dup.Empty() {
		t.Errorf("rejected Insert should not steal the caller's tensor")
	}
	dup.Close()
}

func TestConstantMapInsertTakesOwnership(t *testing.T) {
	tab := hostabi.New()
	cm := NewConstantMap()
	src := Steal(tab, newTestTensor(t, tab))

	if err := cm.Insert("w", &src); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !src.Empty() {
		t.Errorf("source handle not emptied by Insert")
	}
	// The caller's copy is inert: closing it must not touch the registry's
	// tensor.
	if err := src.Close(); err != nil {
		t.Fatalf("Close of emptied source failed: %v", err)
	}
	if tab.Live() != 1 {
		t.Fatalf("expected registry tensor still live, got %d", tab.Live())
	}

	if err := cm.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if tab.Live() != 0 {
		t.Errorf("expected 0 live tensors after Close, got %d", tab.Live())
	}
	if cm.Len() != 0 {
		t.Errorf("map not empty after Close")
	}
}
