package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
scripts = "src"

[runtime]
log-level = 2
color = "never"

[store]
driver = "mysql"
dsn = "user:pw@tcp(db:3306)/janitor"

[server]
address = "0.0.0.0:9000"

[go-wrap]
output = "gen"
[[go-wrap.packages]]
import = "net/url"
include = ["URL", "Values"]
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := Manifest{
		Project: Project{Name: "demo", Scripts: "src"},
		Runtime: Runtime{LogLevel: 2, Color: "never"},
		Store:   Store{Driver: "mysql", DSN: "user:pw@tcp(db:3306)/janitor"},
		Server:  Server{Address: "0.0.0.0:9000"},
		GoWrap: GoWrap{
			Output:   "gen",
			Packages: []WrapPackage{{Import: "net/url", Include: []string{"URL", "Values"}}},
		},
		Dir: m.Dir,
	}
	if diff := cmp.Diff(want, *m); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
	if m.StoreDSN() != "user:pw@tcp(db:3306)/janitor" {
		t.Errorf("StoreDSN() = %q, want the mysql DSN unchanged", m.StoreDSN())
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.ScriptsDir() != filepath.Join(m.Dir, "scripts") {
		t.Errorf("ScriptsDir() = %q, want %q", m.ScriptsDir(), filepath.Join(m.Dir, "scripts"))
	}
	if m.Store.Driver != "sqlite" || m.StoreDSN() != filepath.Join(m.Dir, "janitor.db") {
		t.Errorf("store = %+v, DSN %q, want sqlite janitor.db", m.Store, m.StoreDSN())
	}
	if m.Runtime.Color != "auto" {
		t.Errorf("color = %q, want auto", m.Runtime.Color)
	}
	if m.Server.Address != "127.0.0.1:7420" {
		t.Errorf("address = %q, want 127.0.0.1:7420", m.Server.Address)
	}
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no project", "[store]\ndriver = \"sqlite\"\n"},
		{"empty name", "[project]\nname = \"\"\n"},
		{"unknown section", "[project]\nname = \"x\"\n[extras]\na = 1\n"},
		{"unknown key", "[project]\nname = \"x\"\nversion = \"1\"\n"},
		{"bad driver", "[project]\nname = \"x\"\n[store]\ndriver = \"oracle\"\n"},
		{"bad color", "[project]\nname = \"x\"\n[runtime]\ncolor = \"pink\"\n"},
		{"bad address", "[project]\nname = \"x\"\n[server]\naddress = \"localhost\"\n"},
		{"lowercase type", "[project]\nname = \"x\"\n[[go-wrap.packages]]\nimport = \"net/url\"\ninclude = [\"url\"]\n"},
		{"package without import", "[project]\nname = \"x\"\n[[go-wrap.packages]]\ninclude = [\"URL\"]\n"},
		{"not toml", "[project\n"},
	}

	for _, tc := range tests {
		if _, err := Parse([]byte(tc.content)); err == nil {
			t.Errorf("%s: Parse succeeded, want error", tc.name)
		}
	}
}

func TestIsReservedName(t *testing.T) {
	for name, want := range map[string]bool{"print": true, "__builtin__": true, "URL": false, "Print": false} {
		if got := IsReservedName(name); got != want {
			t.Errorf("IsReservedName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "[project]\nname = \"found-project\"\n")

	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no janitor.toml exists")
	}
}

func TestDefaultResolvesPaths(t *testing.T) {
	m := Default("/app")
	if m.ScriptsDir() != "/app/scripts" {
		t.Errorf("ScriptsDir() = %q, want /app/scripts", m.ScriptsDir())
	}
	if m.WrapperDir() != "/app/wrappers" {
		t.Errorf("WrapperDir() = %q, want /app/wrappers", m.WrapperDir())
	}
	m.Store.DSN = ":memory:"
	if m.StoreDSN() != ":memory:" {
		t.Errorf("StoreDSN() = %q, want :memory:", m.StoreDSN())
	}
}
