package demod

// SSB demodulation is simply the real part of the (already channel-filtered
// and, for CW, BFO-translated) complex baseband, per spec.md §4.7.
type SSB struct{}

// NewSSB returns an SSB demodulator.
func NewSSB() *SSB {
	return &SSB{}
}

// Process extracts the real part of each sample into out (grown as needed).
func (d *SSB) Process(in []complex64, out []float32) []float32 {
	if cap(out) < len(in) {
		out = make([]float32, len(in))
	}
	out = out[:len(in)]
	for i, s := range in {
		out[i] = real(s)
	}
	return out
}
