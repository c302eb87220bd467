package config_test

import (
	"errors"
	"testing"

	"github.com/voxtutor/voxtutor/internal/config"
	"github.com/voxtutor/voxtutor/pkg/provider/capture"
	capturemock "github.com/voxtutor/voxtutor/pkg/provider/capture/mock"
	"github.com/voxtutor/voxtutor/pkg/provider/synth"
	synthmock "github.com/voxtutor/voxtutor/pkg/provider/synth/mock"
)

func TestRegistry_CreateCapture(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	var gotEntry config.ProviderEntry
	reg.RegisterCapture("fake", func(entry config.ProviderEntry) (capture.Provider, error) {
		gotEntry = entry
		return &capturemock.Provider{}, nil
	})

	p, err := reg.CreateCapture(config.ProviderEntry{Name: "fake", APIKey: "k1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected a provider instance")
	}
	if gotEntry.APIKey != "k1" {
		t.Errorf("factory entry APIKey: got %q, want %q", gotEntry.APIKey, "k1")
	}
}

func TestRegistry_CreateSynth(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	reg.RegisterSynth("fake", func(config.ProviderEntry) (synth.Provider, error) {
		return &synthmock.Provider{}, nil
	})

	if _, err := reg.CreateSynth(config.ProviderEntry{Name: "fake"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegistry_NotRegistered(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	_, err := reg.CreateCapture(config.ProviderEntry{Name: "ghost"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}

	_, err = reg.CreateSynth(config.ProviderEntry{Name: "ghost"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_Overwrite(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	first := &synthmock.Provider{}
	second := &synthmock.Provider{}
	reg.RegisterSynth("dup", func(config.ProviderEntry) (synth.Provider, error) { return first, nil })
	reg.RegisterSynth("dup", func(config.ProviderEntry) (synth.Provider, error) { return second, nil })

	p, err := reg.CreateSynth(config.ProviderEntry{Name: "dup"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != second {
		t.Error("later registration should overwrite the earlier one")
	}
}
