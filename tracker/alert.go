package tracker

import (
	"math"
	"slices"
	"time"
)

type (
	// Alerts is the list of messages shown to the user. The sequencer never
	// logs from the audio thread; it sends Alerts to the model instead.
	Alerts struct {
		alerts []Alert
	}

	Alert struct {
		Name      string // alerts with the same non-empty name replace each other
		Priority  AlertPriority
		Message   string
		Duration  time.Duration
		FadeLevel float64
	}

	AlertPriority int
)

const (
	Info AlertPriority = iota
	Warning
	Error
)

const defaultAlertDuration = 3 * time.Second

func (p AlertPriority) String() string {
	switch p {
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "info"
}

// Iterate can be ranged over to get the current alerts, most important first.
func (m *Alerts) Iterate(yield func(index int, alert Alert) bool) {
	for i, a := range m.alerts {
		if !yield(i, a) {
			break
		}
	}
}

func (m *Alerts) Len() int { return len(m.alerts) }

// Update ages the alerts by d, fading them in and out and removing the ones
// that have faded out. Returns true if some alert is still animating.
func (m *Alerts) Update(d time.Duration) (animating bool) {
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if m.alerts[i].Duration >= d {
			m.alerts[i].Duration -= d
			if m.alerts[i].FadeLevel < 1 {
				animating = true
				m.alerts[i].FadeLevel = math.Min(m.alerts[i].FadeLevel+float64(d)/float64(time.Second)*10, 1)
			}
			continue
		}
		m.alerts[i].Duration = 0
		m.alerts[i].FadeLevel = math.Max(m.alerts[i].FadeLevel-float64(d)/float64(time.Second)*10, 0)
		if m.alerts[i].FadeLevel > 0 {
			animating = true
			continue
		}
		m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
	}
	return
}

func (m *Alerts) Add(message string, priority AlertPriority) {
	m.AddAlert(Alert{
		Priority: priority,
		Message:  message,
		Duration: defaultAlertDuration,
	})
}

func (m *Alerts) AddNamed(name, message string, priority AlertPriority) {
	m.AddAlert(Alert{
		Name:     name,
		Priority: priority,
		Message:  message,
		Duration: defaultAlertDuration,
	})
}

func (m *Alerts) AddAlert(a Alert) {
	if a.Duration == 0 {
		a.Duration = defaultAlertDuration
	}
	if a.Name != "" {
		for i := range m.alerts {
			if m.alerts[i].Name == a.Name {
				a.FadeLevel = m.alerts[i].FadeLevel
				m.alerts[i] = a
				return
			}
		}
	}
	m.alerts = append(m.alerts, a)
	slices.SortStableFunc(m.alerts, func(a, b Alert) int { return int(b.Priority - a.Priority) })
}
