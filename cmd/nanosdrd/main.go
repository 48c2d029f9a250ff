// Command nanosdrd is the headless receiver daemon (spec.md §5): it loads
// a config file, starts the scheduler, and writes demodulated audio to
// stdout as raw interleaved little-endian int16 PCM until interrupted.
// Flag handling follows doismellburning-samoyed/cmd/direwolf/main.go's
// pflag.StringP/IntP/BoolP-with-a-custom-Usage-func style.
package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"hz.tools/rf"

	"hz.tools/nanosdr/config"
	"hz.tools/nanosdr/device"
	_ "hz.tools/nanosdr/device/sdriq"
	"hz.tools/nanosdr/dsp/agc"
	"hz.tools/nanosdr/receiver"
	"hz.tools/nanosdr/sched"
	"hz.tools/nanosdr/spectrum"
)

// vendor cgo backends (rtlsdr, airspy, bladerf, limesdr, sdrplay) build
// only when the matching `-tags` is set, and this command does not import
// them, so the daemon registers only the sdriq, file and stdin backends.

func main() {
	configFile := pflag.StringP("config-file", "c", "nanosdr.conf", "Configuration file name.")
	frequency := pflag.Float64P("frequency", "f", 0, "Tuned frequency in Hz. 0 uses the config file's value.")
	lowCut := pflag.Float64("low-cut", 0, "Passband low edge in Hz relative to tuning offset (not read from the config file); must be below --high-cut.")
	highCut := pflag.Float64("high-cut", 0, "Passband high edge in Hz relative to tuning offset (not read from the config file).")
	demodStr := pflag.StringP("demod", "m", "ssb", "Demodulator: ssb, am, nfm, apt.")
	squelchDB := pflag.Float64P("squelch", "s", -150, "Squelch threshold in dB.")
	outputRate := pflag.Uint32P("audio-rate", "r", 48000, "Audio output sample rate.")
	fftSize := pflag.Uint32("fft-size", 4096, "Spectrum FFT size.")
	fftRate := pflag.Uint32("fft-rate", 20, "Spectrum updates per second.")
	help := pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "nanosdrd - headless software-defined-radio receiver daemon.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: nanosdrd [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	f, err := os.Open(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nanosdrd: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nanosdrd: config: %v\n", err)
		os.Exit(1)
	}

	devCfg := device.Config{
		Type:        cfg.SDRInput.Type,
		Path:        cfg.Backend[cfg.SDRInput.Type+"/path"],
		Frequency:   cfg.SDRInput.Frequency,
		NCO:         cfg.SDRInput.NCO,
		Transverter: cfg.SDRInput.Transverter,
		Rate:        cfg.SDRInput.SampleRate,
		Decimation:  cfg.SDRInput.Decimation,
		Bandwidth:   cfg.SDRInput.Bandwidth,
		FreqCorrPPB: cfg.SDRInput.FreqCorrPPB,
		GainMode:    device.GainMode(cfg.SDRInput.GainMode),
		Gain:        cfg.SDRInput.Gain,
	}
	if *frequency != 0 {
		devCfg.Frequency = rf.Hz(*frequency)
	}

	var demod receiver.Kind
	switch *demodStr {
	case "ssb":
		demod = receiver.KindSSB
	case "am":
		demod = receiver.KindAM
	case "nfm":
		demod = receiver.KindNFM
	case "apt":
		demod = receiver.KindAPT
	default:
		fmt.Fprintf(os.Stderr, "nanosdrd: unknown demodulator %q\n", *demodStr)
		os.Exit(1)
	}

	rxCfg := receiver.Config{
		OutputRate:     float64(*outputRate),
		DynamicRangeDB: 70,
		FrameLength:    2048,
		LowCut:         *lowCut,
		HighCut:        *highCut,
		Demod:          demod,
		AGC:            agc.Params{On: true, ThresholdDB: -80, SlopeDB: 2, DecayMS: 500},
		SquelchDB:      *squelchDB,
	}

	sink := &stdoutSink{w: bufio.NewWriterSize(os.Stdout, 1<<16)}
	s := sched.New(sink)
	if err := s.Start(sched.Config{
		Device:   devCfg,
		Receiver: rxCfg,
		FFT:      spectrum.Settings{FFTSize: *fftSize, FFTRate: *fftRate},
	}); err != nil {
		fmt.Fprintf(os.Stderr, "nanosdrd: %v\n", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	if err := s.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "nanosdrd: %v\n", err)
	}
	sink.w.Flush()

	stats := s.Stats()
	fmt.Fprintf(os.Stderr, "nanosdrd: %d samples in, %d samples out\n", stats.SamplesIn, stats.SamplesOut)
}

// stdoutSink writes PCM audio to stdout as raw little-endian int16.
type stdoutSink struct {
	w   *bufio.Writer
	buf [2]byte
}

func (s *stdoutSink) Write(samples []int16) error {
	for _, v := range samples {
		binary.LittleEndian.PutUint16(s.buf[:], uint16(v))
		if _, err := s.w.Write(s.buf[:]); err != nil {
			return err
		}
	}
	return nil
}
