package present

import (
	"path/filepath"
	"time"

	"github.com/gofrs/uuid"
	oss "github.com/sobelfarm/sobelfarm/pkg/os"
	"gopkg.in/yaml.v3"
)

const manifestFile = "manifest.yaml"

// Manifest describes one presenter run in its output dir.
type Manifest struct {
	Run      string    `yaml:"run"`
	Kind     string    `yaml:"kind"`
	Files    string    `yaml:"files"`
	Frames   int       `yaml:"frames"`
	Width    int       `yaml:"width"`
	Height   int       `yaml:"height"`
	Started  time.Time `yaml:"started"`
	Finished time.Time `yaml:"finished"`
}

func newManifest(kind, files string) Manifest {
	id, err := uuid.NewV4()
	run := id.String()
	if err != nil {
		run = "unknown"
	}
	return Manifest{Run: run, Kind: kind, Files: files, Started: time.Now().UTC()}
}

func (m *Manifest) seen(w, h int) {
	m.Frames++
	m.Width, m.Height = w, h
}

func (m *Manifest) save(dir string) error {
	m.Finished = time.Now().UTC()
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return oss.WriteFile(filepath.Join(dir, manifestFile), data, 0644)
}

// ReadManifest loads the manifest of a finished run.
func ReadManifest(dir string) (m Manifest, err error) {
	data, err := oss.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return m, err
	}
	err = yaml.Unmarshal(data, &m)
	return
}
