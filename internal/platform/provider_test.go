package platform

import (
	"errors"
	"strings"
	"testing"
)

func TestNewProvider_UnsupportedPlatform(t *testing.T) {
	// Temporarily clear the provider func to simulate unsupported platform
	orig := NewProviderFunc
	NewProviderFunc = nil
	defer func() { NewProviderFunc = orig }()

	_, err := NewProvider()
	if err == nil {
		t.Fatal("expected error on unsupported platform")
	}
	if err != ErrUnsupported {
		t.Errorf("expected ErrUnsupported, got: %v", err)
	}
}

type noPrivileges struct{}

func (noPrivileges) CanStealFocus() bool   { return false }
func (noPrivileges) StealFocus(int) error  { return nil }
func (noPrivileges) CanBlockInput() bool   { return true }
func (noPrivileges) BlockInput(bool) error { return nil }

func TestProvider_Capabilities(t *testing.T) {
	p := &Provider{Privileges: noPrivileges{}}
	caps := p.Capabilities()
	if caps["clipboard"] || caps["steal_focus"] {
		t.Errorf("missing backends reported present: %v", caps)
	}
	if !caps["block_input"] {
		t.Error("block_input should follow CanBlockInput")
	}
	if len(caps) != 8 {
		t.Errorf("expected 8 capabilities, got %d", len(caps))
	}
}

func TestProvider_Require(t *testing.T) {
	p := &Provider{}
	err := p.Require()
	if err == nil || !strings.Contains(err.Error(), "process management") {
		t.Errorf("expected process management error, got %v", err)
	}
	if !errors.Is(err, ErrBackendMissing) {
		t.Errorf("Require error %v does not wrap ErrBackendMissing", err)
	}
	if want := "process management not available on this platform"; err.Error() != want {
		t.Errorf("Require error = %q, want %q", err, want)
	}
}
