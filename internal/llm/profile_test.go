package llm

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terse.yaml")
	data := "model: gpt-4o\nsystem_prompt: Short snippets.\ntemperature: 0.2\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if p.Name != "terse" {
		t.Errorf("Name = %q, want fallback to file name", p.Name)
	}
	if p.Model != "gpt-4o" || p.Temperature != 0.2 {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestLoadProfileBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("model: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadProfile(path); err == nil {
		t.Fatal("LoadProfile() accepted invalid yaml")
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.yaml":     "name: alpha\nmodel: m1\n",
		"b.yml":      "model: m2\n",
		"notes.txt":  "not a profile",
		"nested.dir": "",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if name == "nested.dir" {
			if err := os.Mkdir(path, 0o755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	profiles, err := LoadProfiles(dir)
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
	if profiles["alpha"].Model != "m1" {
		t.Errorf("alpha profile = %+v", profiles["alpha"])
	}
	if profiles["b"].Model != "m2" {
		t.Errorf("b profile = %+v", profiles["b"])
	}
}

func TestLoadProfilesMissingDir(t *testing.T) {
	profiles, err := LoadProfiles(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("got %d profiles from a missing dir", len(profiles))
	}
}
