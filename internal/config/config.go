package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

const (
	minIndexTimeoutMS    = 1000
	minHeadTimeoutMS     = 500
	minDownloadTimeoutMS = 5000
	maxRetries           = 20
)

// Settings drives one synchronization run. Loaded from a yaml file; absent
// keys keep their defaults.
type Settings struct {
	InstallDir        string `yaml:"install_dir"`
	Workers           int    `yaml:"workers"`
	Decompress        bool   `yaml:"decompress"`
	DeleteArchives    bool   `yaml:"delete_bz2"`
	IndexTimeoutMS    int    `yaml:"index_timeout_ms"`
	HeadTimeoutMS     int    `yaml:"head_timeout_ms"`
	DownloadTimeoutMS int    `yaml:"download_timeout_ms"`
	Retries           int    `yaml:"retries"`
	IncludeFilters    string `yaml:"include_filters"`
	ExcludeFilters    string `yaml:"exclude_filters"`
}

// Default returns settings with sensible defaults: half of the available
// hardware parallelism as the worker bound, minimum one.
func Default() *Settings {
	return &Settings{
		Workers:           defaultWorkers(),
		IndexTimeoutMS:    8000,
		HeadTimeoutMS:     5000,
		DownloadTimeoutMS: 30000,
		Retries:           3,
	}
}

func defaultWorkers() int {
	w := runtime.NumCPU() / 2
	if w < 1 {
		w = 1
	}

	return w
}

// Load reads settings from path. A missing file yields defaults without an
// error; a malformed file yields defaults plus the parse error so the
// caller can log it and continue.
func Load(fs afero.Fs, path string) (*Settings, error) {
	s := Default()

	ok, err := afero.Exists(fs, path)
	if err != nil || !ok {
		return s, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Default(), fmt.Errorf("cannot read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return Default(), fmt.Errorf("cannot parse settings: %w", err)
	}
	s.Normalize()

	return s, nil
}

// Save writes the settings to path.
func (s *Settings) Save(fs afero.Fs, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("cannot marshal settings: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write settings: %w", err)
	}

	return nil
}

// Normalize clamps values into their supported ranges.
func (s *Settings) Normalize() {
	if s.Workers < 1 {
		s.Workers = defaultWorkers()
	}
	if s.IndexTimeoutMS < minIndexTimeoutMS {
		s.IndexTimeoutMS = minIndexTimeoutMS
	}
	if s.HeadTimeoutMS < minHeadTimeoutMS {
		s.HeadTimeoutMS = minHeadTimeoutMS
	}
	if s.DownloadTimeoutMS < minDownloadTimeoutMS {
		s.DownloadTimeoutMS = minDownloadTimeoutMS
	}
	if s.Retries < 0 {
		s.Retries = 0
	}
	if s.Retries > maxRetries {
		s.Retries = maxRetries
	}
}

func (s *Settings) IndexTimeout() time.Duration {
	return time.Duration(s.IndexTimeoutMS) * time.Millisecond
}

func (s *Settings) HeadTimeout() time.Duration {
	return time.Duration(s.HeadTimeoutMS) * time.Millisecond
}

func (s *Settings) DownloadTimeout() time.Duration {
	return time.Duration(s.DownloadTimeoutMS) * time.Millisecond
}
