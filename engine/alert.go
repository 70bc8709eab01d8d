package engine

import "time"

type (
	// Alert is a transient user-facing notification. Alerts with a Name
	// replace any previous alert with the same name instead of stacking, so
	// a recurring failure is shown once and refreshed rather than flooding
	// the list.
	Alert struct {
		Name     string
		Priority AlertPriority
		Message  string
		Duration time.Duration
	}

	AlertPriority int

	// AlertsModel gives access to the model's pending alerts.
	AlertsModel Model
)

const (
	Info AlertPriority = iota
	Warning
	Error
)

const defaultAlertDuration = 3 * time.Second

func (m *Model) Alerts() *AlertsModel { return (*AlertsModel)(m) }

// Add adds an anonymous alert with the default duration.
func (m *AlertsModel) Add(message string, priority AlertPriority) {
	m.AddAlert(Alert{Message: message, Priority: priority, Duration: defaultAlertDuration})
}

// AddNamed adds or refreshes a named alert.
func (m *AlertsModel) AddNamed(name, message string, priority AlertPriority) {
	m.AddAlert(Alert{Name: name, Message: message, Priority: priority, Duration: defaultAlertDuration})
}

func (m *AlertsModel) AddAlert(a Alert) {
	if a.Name != "" {
		for i := range m.alerts {
			if m.alerts[i].Name == a.Name {
				m.alerts[i] = a
				m.alertExpiries[i] = time.Now().Add(a.Duration)
				return
			}
		}
	}
	m.alerts = append(m.alerts, a)
	m.alertExpiries = append(m.alertExpiries, time.Now().Add(a.Duration))
}

// Count returns the number of currently visible alerts, dropping expired ones
// first.
func (m *AlertsModel) Count() int {
	m.expire(time.Now())
	return len(m.alerts)
}

// Iterate yields the currently visible alerts.
func (m *AlertsModel) Iterate(yield func(a Alert) bool) {
	m.expire(time.Now())
	for _, a := range m.alerts {
		if !yield(a) {
			return
		}
	}
}

func (m *AlertsModel) expire(now time.Time) {
	keep := 0
	for i := range m.alerts {
		if m.alertExpiries[i].After(now) {
			m.alerts[keep] = m.alerts[i]
			m.alertExpiries[keep] = m.alertExpiries[i]
			keep++
		}
	}
	m.alerts = m.alerts[:keep]
	m.alertExpiries = m.alertExpiries[:keep]
}
