package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFillsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Load(strings.NewReader("[sdr_input]\ntype = rtlsdr\n"))
	require.NoError(t, err)
	assert.Equal(t, "rtlsdr", cfg.SDRInput.Type)
	assert.Equal(t, DefaultSampleRate, cfg.SDRInput.SampleRate)
	assert.Equal(t, DefaultGain, cfg.SDRInput.Gain)
}

func TestSaveOmitsDefaultValuedKeys(t *testing.T) {
	cfg := Default()
	cfg.SDRInput.Type = "rtlsdr"

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, cfg))

	out := buf.String()
	assert.Contains(t, out, "type = rtlsdr")
	assert.NotContains(t, out, "sample_rate")
	assert.NotContains(t, out, "gain =")
}

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.SDRInput.Type = "limesdr"
	cfg.SDRInput.Frequency = 100000000
	cfg.SDRInput.SampleRate = 10000000
	cfg.Backend["limesdr/rx_gain"] = "40"

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, cfg))

	got, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, cfg.SDRInput.Type, got.SDRInput.Type)
	assert.Equal(t, cfg.SDRInput.Frequency, got.SDRInput.Frequency)
	assert.Equal(t, cfg.SDRInput.SampleRate, got.SDRInput.SampleRate)
	assert.Equal(t, "40", got.Backend["limesdr/rx_gain"])
}

func TestLoadRejectsKeyOutsideGroup(t *testing.T) {
	_, err := Load(strings.NewReader("type = rtlsdr\n"))
	assert.Error(t, err)
}
