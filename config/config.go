// Package config implements the INI-like, group/key configuration codec
// (spec.md §6): `[group]` headers, `key = value` bodies, `#` comments, and
// default-value pruning on save. Grounded on the line-at-a-time,
// bufio.Scanner-driven parsing style of doismellburning-samoyed's
// config.go, adapted from that file's C-struct-filling shape to a plain Go
// struct whose defaults are the Default* constants, applied by Default().
package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"hz.tools/nanosdr/nerr"
	"hz.tools/rf"
)

// Defaults for spec.md §6's sdr_input group.
const (
	DefaultConfigVersion = 1
	DefaultType          = "file"
	DefaultSampleRate    = uint32(2400000)
	DefaultDecimation    = uint32(1)
	DefaultBandwidth     = uint32(0)
	DefaultGainMode      = int32(0)
	DefaultGain          = int32(50)
)

// DeviceConfig mirrors spec.md §3's device configuration group.
type DeviceConfig struct {
	Type           string
	Frequency      rf.Hz
	NCO            rf.Hz
	Transverter    rf.Hz
	SampleRate     uint32
	Decimation     uint32
	Bandwidth      uint32
	FreqCorrPPB    int32
	GainMode       int32
	Gain           int32
}

// Config is the full on-disk configuration (spec.md §6).
type Config struct {
	ConfigVersion int
	SDRInput      DeviceConfig
	// Backend holds per-vendor sub-groups (rtlsdr/manual_gain,
	// airspy/gain_mode, limesdr/rx_gain, bladerf/rx_gain,
	// sdrplay/lna_state, sdrplay/gain_reduction, ...), keyed by
	// "group/key".
	Backend map[string]string
}

// Default returns a Config populated entirely with documented defaults.
func Default() Config {
	return Config{
		ConfigVersion: DefaultConfigVersion,
		SDRInput: DeviceConfig{
			Type:       DefaultType,
			SampleRate: DefaultSampleRate,
			Decimation: DefaultDecimation,
			Bandwidth:  DefaultBandwidth,
			GainMode:   DefaultGainMode,
			Gain:       DefaultGain,
		},
		Backend: map[string]string{},
	}
}

// Load reads an INI-like config stream, filling in defaults for any key
// that is absent (spec.md §9: "config.Load fills in defaults for missing
// keys").
func Load(r io.Reader) (Config, error) {
	cfg := Default()

	scanner := bufio.NewScanner(r)
	group := ""
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if strings.HasPrefix(text, "[") {
			if !strings.HasSuffix(text, "]") {
				return cfg, nerr.New(nerr.EINVAL, "config line %d: malformed group header %q", line, text)
			}
			group = strings.TrimSuffix(strings.TrimPrefix(text, "["), "]")
			continue
		}

		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return cfg, nerr.New(nerr.EINVAL, "config line %d: expected key = value, got %q", line, text)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if err := cfg.set(group, key, value); err != nil {
			return cfg, fmt.Errorf("config line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) set(group, key, value string) error {
	switch group {
	case "app":
		if key == "config_version" {
			n, err := strconv.Atoi(value)
			if err != nil {
				return nerr.New(nerr.EINVAL, "config_version: %v", err)
			}
			c.ConfigVersion = n
		}
	case "sdr_input":
		return c.setSDRInput(key, value)
	default:
		if group == "" {
			return nerr.New(nerr.EINVAL, "key %q outside any [group]", key)
		}
		c.Backend[group+"/"+key] = value
	}
	return nil
}

func (c *Config) setSDRInput(key, value string) error {
	d := &c.SDRInput
	switch key {
	case "type":
		d.Type = value
	case "frequency":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nerr.New(nerr.EINVAL, "frequency: %v", err)
		}
		d.Frequency = rf.Hz(v)
	case "nco":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nerr.New(nerr.EINVAL, "nco: %v", err)
		}
		d.NCO = rf.Hz(v)
	case "transverter":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nerr.New(nerr.EINVAL, "transverter: %v", err)
		}
		d.Transverter = rf.Hz(v)
	case "sample_rate":
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nerr.New(nerr.EINVAL, "sample_rate: %v", err)
		}
		d.SampleRate = uint32(v)
	case "decimation":
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nerr.New(nerr.EINVAL, "decimation: %v", err)
		}
		d.Decimation = uint32(v)
	case "bandwidth":
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nerr.New(nerr.EINVAL, "bandwidth: %v", err)
		}
		d.Bandwidth = uint32(v)
	case "frequency_correction":
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nerr.New(nerr.EINVAL, "frequency_correction: %v", err)
		}
		d.FreqCorrPPB = int32(v)
	case "gain_mode":
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nerr.New(nerr.EINVAL, "gain_mode: %v", err)
		}
		d.GainMode = int32(v)
	case "gain":
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nerr.New(nerr.EINVAL, "gain: %v", err)
		}
		d.Gain = int32(v)
	default:
		return nerr.New(nerr.EINVAL, "unknown sdr_input key %q", key)
	}
	return nil
}

// Save writes cfg back out, omitting any key whose value equals its
// documented default (spec.md §6: "keep files minimal").
func Save(w io.Writer, cfg Config) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "[app]")
	if cfg.ConfigVersion != DefaultConfigVersion {
		fmt.Fprintf(bw, "config_version = %d\n", cfg.ConfigVersion)
	}

	fmt.Fprintln(bw, "\n[sdr_input]")
	d := cfg.SDRInput
	writeIfNotDefault(bw, "type", d.Type, DefaultType)
	writeIfNotDefaultU64(bw, "frequency", uint64(d.Frequency), 0)
	writeIfNotDefaultI64(bw, "nco", int64(d.NCO), 0)
	writeIfNotDefaultI64(bw, "transverter", int64(d.Transverter), 0)
	writeIfNotDefaultU32(bw, "sample_rate", d.SampleRate, DefaultSampleRate)
	writeIfNotDefaultU32(bw, "decimation", d.Decimation, DefaultDecimation)
	writeIfNotDefaultU32(bw, "bandwidth", d.Bandwidth, DefaultBandwidth)
	writeIfNotDefaultI32(bw, "frequency_correction", d.FreqCorrPPB, 0)
	writeIfNotDefaultI32(bw, "gain_mode", d.GainMode, DefaultGainMode)
	writeIfNotDefaultI32(bw, "gain", d.Gain, DefaultGain)

	groups := map[string]map[string]string{}
	for k, v := range cfg.Backend {
		group, key, ok := strings.Cut(k, "/")
		if !ok {
			continue
		}
		if groups[group] == nil {
			groups[group] = map[string]string{}
		}
		groups[group][key] = v
	}
	for group, kv := range groups {
		fmt.Fprintf(bw, "\n[%s]\n", group)
		for k, v := range kv {
			fmt.Fprintf(bw, "%s = %s\n", k, v)
		}
	}

	return bw.Flush()
}

func writeIfNotDefault(w io.Writer, key, value, def string) {
	if value != def {
		fmt.Fprintf(w, "%s = %s\n", key, value)
	}
}

func writeIfNotDefaultU64(w io.Writer, key string, value, def uint64) {
	if value != def {
		fmt.Fprintf(w, "%s = %d\n", key, value)
	}
}

func writeIfNotDefaultI64(w io.Writer, key string, value, def int64) {
	if value != def {
		fmt.Fprintf(w, "%s = %d\n", key, value)
	}
}

func writeIfNotDefaultU32(w io.Writer, key string, value, def uint32) {
	if value != def {
		fmt.Fprintf(w, "%s = %d\n", key, value)
	}
}

func writeIfNotDefaultI32(w io.Writer, key string, value, def int32) {
	if value != def {
		fmt.Fprintf(w, "%s = %d\n", key, value)
	}
}
