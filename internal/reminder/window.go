package reminder

// Window is a named tolerance band of hours-before-deadline. Both bounds
// are inclusive.
type Window struct {
	Name  string
	Lower float64
	Upper float64
}

// Contains reports whether hoursRemaining falls inside the band.
func (w Window) Contains(hoursRemaining float64) bool {
	return hoursRemaining >= w.Lower && hoursRemaining <= w.Upper
}

// Classify matches hoursRemaining against the ordered window set. A record
// matches at most one window: the first match wins, which also bounds the
// damage of misconfigured overlapping windows.
func Classify(hoursRemaining float64, windows []Window) (Window, bool) {
	for _, w := range windows {
		if w.Contains(hoursRemaining) {
			return w, true
		}
	}
	return Window{}, false
}
