package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	writeScriptPlugin(t, root, "notify", []string{"speak", "notify"}, "exit 0\n")
	writeScriptPlugin(t, root, "audio", []string{"beep"}, "exit 0\n")

	m := NewManager(root, quietLogger())
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := m.List()
	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
	if plugins[0].Manifest.Name != "audio" || plugins[1].Manifest.Name != "notify" {
		t.Errorf("List() not sorted: %s, %s", plugins[0].Manifest.Name, plugins[1].Manifest.Name)
	}

	p, err := m.Get("notify")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Executable != filepath.Join(root, "notify", "run.sh") {
		t.Errorf("Executable = %q", p.Executable)
	}
	if !p.Manifest.Supports("speak") || p.Manifest.Supports("dance") {
		t.Errorf("Supports() wrong for %v", p.Manifest.Actions)
	}
}

func TestManager_Discover_SkipsBadEntries(t *testing.T) {
	root := t.TempDir()
	writeScriptPlugin(t, root, "good", []string{"a"}, "exit 0\n")

	bad := filepath.Join(root, "bad")
	os.MkdirAll(bad, 0755)
	os.WriteFile(filepath.Join(bad, ManifestFile), []byte("{invalid"), 0644)

	unnamed := filepath.Join(root, "unnamed")
	os.MkdirAll(unnamed, 0755)
	os.WriteFile(filepath.Join(unnamed, ManifestFile), []byte(`{"executable":"x"}`), 0644)

	os.MkdirAll(filepath.Join(root, "no-manifest"), 0755)
	os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644)

	m := NewManager(root, quietLogger())
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if n := len(m.List()); n != 1 {
		t.Errorf("expected only the valid plugin, got %d", n)
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	writeScriptPlugin(t, root, "first", []string{"a"}, "exit 0\n")

	m := NewManager(root, quietLogger())
	m.Discover()

	os.RemoveAll(filepath.Join(root, "first"))
	writeScriptPlugin(t, root, "second", []string{"a"}, "exit 0\n")
	m.Discover()

	if _, err := m.Get("first"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("removed plugin still listed: %v", err)
	}
	if _, err := m.Get("second"); err != nil {
		t.Errorf("new plugin missing: %v", err)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"), quietLogger())

	if err := m.Discover(); err != nil {
		t.Errorf("Discover() on missing dir = %v, want nil", err)
	}
	if len(m.List()) != 0 {
		t.Error("expected no plugins")
	}
}

func TestManager_PluginDir(t *testing.T) {
	m := NewManager("/some/path", nil)
	if m.PluginDir() != "/some/path" {
		t.Errorf("PluginDir() = %q", m.PluginDir())
	}
}
