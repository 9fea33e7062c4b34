package stage

import "fmt"

// Health reports whether a pipeline stage can accept work. Detail carries
// the blocking condition when Ready is false.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy marks the named stage ready.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy marks the named stage blocked with an explanation.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// String renders "name: ready" or "name: blocked (detail)".
func (h Health) String() string {
	if h.Ready {
		return h.Name + ": ready"
	}
	if h.Detail == "" {
		return h.Name + ": blocked"
	}
	return fmt.Sprintf("%s: blocked (%s)", h.Name, h.Detail)
}
