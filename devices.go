package main

import (
	"fmt"
	"io"
)

type selectionSource int

const (
	selectDefault selectionSource = iota
	selectExplicit
	selectPersisted
)

func (s selectionSource) String() string {
	switch s {
	case selectExplicit:
		return "explicit"
	case selectPersisted:
		return "persisted"
	default:
		return "default"
	}
}

// deviceSelection names a platform/device pair and where it came from.
type deviceSelection struct {
	Platform int
	Device   int
	Source   selectionSource
}

func defaultSelection() deviceSelection {
	return deviceSelection{Source: selectDefault}
}

func explicitSelection(platform, device int) deviceSelection {
	return deviceSelection{Platform: platform, Device: device, Source: selectExplicit}
}

// deviceDescriptor is the resolved device a compute context runs on.
type deviceDescriptor struct {
	Platform     int
	Device       int
	PlatformName string
	Info         deviceInfo
	Source       selectionSource
}

func (d deviceDescriptor) String() string {
	return fmt.Sprintf("%s / %s (platform %d, device %d)", d.PlatformName, d.Info.Name, d.Platform, d.Device)
}

// resolveDevice checks sel against the enumerated platforms. It never
// opens the device.
func resolveDevice(rt computeRuntime, sel deviceSelection) (deviceDescriptor, error) {
	platforms, err := rt.Platforms()
	if err != nil {
		return deviceDescriptor{}, fmt.Errorf("querying %s platforms: %w", rt.Name(), err)
	}
	if sel.Platform < 0 || sel.Platform >= len(platforms) {
		return deviceDescriptor{}, &DeviceNotFoundError{
			Platform:      sel.Platform,
			Device:        sel.Device,
			PlatformCount: len(platforms),
		}
	}
	p := platforms[sel.Platform]
	if sel.Device < 0 || sel.Device >= len(p.Devices) {
		return deviceDescriptor{}, &DeviceNotFoundError{
			Platform:      sel.Platform,
			Device:        sel.Device,
			PlatformCount: len(platforms),
			DeviceCount:   len(p.Devices),
		}
	}
	return deviceDescriptor{
		Platform:     sel.Platform,
		Device:       sel.Device,
		PlatformName: p.Name,
		Info:         p.Devices[sel.Device],
		Source:       sel.Source,
	}, nil
}

// enumerateDevices lists every platform and device the runtime reports.
func enumerateDevices(rt computeRuntime) ([]platformInfo, error) {
	platforms, err := rt.Platforms()
	if err != nil {
		return nil, fmt.Errorf("querying %s platforms: %w", rt.Name(), err)
	}
	return platforms, nil
}

// writeDeviceReport prints the enumeration in a human-readable form.
func writeDeviceReport(w io.Writer, platforms []platformInfo) error {
	for _, p := range platforms {
		if _, err := fmt.Fprintf(w, "platform %d: %s (%s, %s)\n", p.Index, p.Name, p.Vendor, p.Version); err != nil {
			return err
		}
		for _, d := range p.Devices {
			_, err := fmt.Fprintf(w,
				"  device %d: %s\n    vendor:   %s\n    memory:   %.2f GB\n    units:    %d\n    clock:    %d MHz\n    driver:   %s\n    wg size:  %d\n",
				d.Index, d.Name, d.Vendor, float64(d.GlobalMemBytes)/(1<<30), d.ComputeUnits, d.ClockMHz, d.DriverVersion, d.MaxWorkGroupSize)
			if err != nil {
				return err
			}
			if d.Features != "" {
				if _, err := fmt.Fprintf(w, "    features: %s\n", d.Features); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
