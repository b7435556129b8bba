// Package deeplink waits for the user to come back from an external wallet
// app after a payment URI handoff.
package deeplink

import "time"

// Event is a foreground signal reported by the host UI.
type Event int

const (
	Visible Event = iota + 1
	Focus
	Hidden
	Blur
)

func (e Event) String() string {
	switch e {
	case Visible:
		return "visible"
	case Focus:
		return "focus"
	case Hidden:
		return "hidden"
	case Blur:
		return "blur"
	default:
		return "unknown"
	}
}

// Detector resumes an armed target exactly once: after the debounce that
// follows the first foreground signal, or at the fallback deadline.
type Detector struct {
	debounce time.Duration
	timeout  time.Duration

	armed    bool
	target   string
	deadline time.Time
	resumeAt time.Time
}

func NewDetector(debounce, timeout time.Duration) *Detector {
	return &Detector{debounce: debounce, timeout: timeout}
}

// Arm replaces any previous wait.
func (d *Detector) Arm(target string, now time.Time) {
	d.armed = true
	d.target = target
	d.deadline = now.Add(d.timeout)
	d.resumeAt = time.Time{}
}

// Signal feeds a foreground event. Hidden or Blur inside the debounce
// window cancels the scheduled resume: the app is still on its way out.
func (d *Detector) Signal(ev Event, now time.Time) {
	if !d.armed {
		return
	}
	switch ev {
	case Visible, Focus:
		if d.resumeAt.IsZero() {
			d.resumeAt = now.Add(d.debounce)
		}
	case Hidden, Blur:
		d.resumeAt = time.Time{}
	}
}

// Tick returns the target once it is due and disarms the detector.
func (d *Detector) Tick(now time.Time) (string, bool) {
	if !d.armed {
		return "", false
	}
	due := !now.Before(d.deadline) || (!d.resumeAt.IsZero() && !now.Before(d.resumeAt))
	if !due {
		return "", false
	}
	target := d.target
	d.Disarm()
	return target, true
}

func (d *Detector) Disarm() {
	d.armed = false
	d.target = ""
	d.deadline = time.Time{}
	d.resumeAt = time.Time{}
}

func (d *Detector) Armed() bool { return d.armed }
