package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
)

// Read reads a config from the given file. Environment variables referenced in the file are expanded first.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from the given reader and specifies where, if applicable, the file the reader
// originated from. Values absent from the JSON keep the ones of the selected preset.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var probe struct {
		Preset string `json:"preset"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	cfg, err := FromPreset(probe.Preset)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	cfg.ConfigFilePath = originalPath
	if err := cfg.Validate(originalPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromPreset returns the named preset, the default config when name is empty.
func FromPreset(name string) (*Config, error) {
	if name == "" {
		return Default(), nil
	}
	preset, ok := Presets[name]
	if !ok {
		return nil, errors.Errorf("unknown preset %q", name)
	}
	cfg := preset()
	cfg.Preset = name
	return cfg, nil
}
