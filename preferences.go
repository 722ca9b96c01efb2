package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// devicePreference is the persisted platform/device choice.
type devicePreference struct {
	UsePlatform int `yaml:"use_platform"`
	UseDevice   int `yaml:"use_device"`
}

// loadPreference reads path. A missing file is not an error; ok reports
// whether a preference was found.
func loadPreference(path string) (devicePreference, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return devicePreference{}, false, nil
	}
	if err != nil {
		return devicePreference{}, false, fmt.Errorf("reading device preference: %w", err)
	}
	var pref devicePreference
	if err := yaml.Unmarshal(data, &pref); err != nil {
		return devicePreference{}, false, fmt.Errorf("parsing device preference %s: %w", path, err)
	}
	return pref, true, nil
}

// savePreference writes pref to path, replacing any previous file.
func savePreference(path string, pref devicePreference) error {
	data, err := yaml.Marshal(pref)
	if err != nil {
		return fmt.Errorf("encoding device preference: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing device preference: %w", err)
	}
	return nil
}

// selectionFromPreference returns the persisted selection, or the default
// when no preference file exists.
func selectionFromPreference(path string) (deviceSelection, error) {
	pref, ok, err := loadPreference(path)
	if err != nil {
		return deviceSelection{}, err
	}
	if !ok {
		return defaultSelection(), nil
	}
	return deviceSelection{Platform: pref.UsePlatform, Device: pref.UseDevice, Source: selectPersisted}, nil
}

// selectAndPersist validates the pair against rt and only then records it.
func selectAndPersist(rt computeRuntime, path string, platform, device int) (deviceDescriptor, error) {
	desc, err := resolveDevice(rt, explicitSelection(platform, device))
	if err != nil {
		return deviceDescriptor{}, err
	}
	if err := savePreference(path, devicePreference{UsePlatform: platform, UseDevice: device}); err != nil {
		return deviceDescriptor{}, err
	}
	return desc, nil
}
