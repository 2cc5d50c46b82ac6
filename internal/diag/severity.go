package diag

// Severity ранжирует диагностику. Порядок значим: HasErrors и детерминированная
// сортировка сравнивают уровни численно, SevError обязан оставаться старшим.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{"INFO", "WARNING", "ERROR"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}
