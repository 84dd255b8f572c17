package girder

// Progress receives the cumulative number of bytes transferred so far. It is
// called synchronously from inside blocking transfer calls.
type Progress interface {
	Transferred(n int64)
}

// ProgressFunc adapts an ordinary function to the Progress interface.
type ProgressFunc func(n int64)

// Transferred calls f(n).
func (f ProgressFunc) Transferred(n int64) {
	f(n)
}

// report forwards n to p when p is non-nil.
func report(p Progress, n int64) {
	if p != nil {
		p.Transferred(n)
	}
}
