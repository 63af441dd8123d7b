package semaforo

import (
	"fmt"
	"strings"
)

// Status is the traffic-light value of a category or an organization.
//
// Severity order: Green < Yellow < Orange < Red. Orange only appears at the
// category level; the organization roll-up folds it into Red.
type Status string

const (
	StatusGreen  Status = "verde"
	StatusYellow Status = "amarillo"
	StatusOrange Status = "naranja"
	StatusRed    Status = "rojo"
)

var statusSeverity = map[Status]int{
	StatusGreen:  0,
	StatusYellow: 1,
	StatusOrange: 2,
	StatusRed:    3,
}

// aliases accepted by ParseStatus besides the canonical values.
var statusAliases = map[string]Status{
	"green":  StatusGreen,
	"yellow": StatusYellow,
	"orange": StatusOrange,
	"red":    StatusRed,
}

// ParseStatus reads a stored or user-provided status value.
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if st := Status(v); st.IsValid() {
		return st, nil
	}
	if st, ok := statusAliases[v]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown semaforo status %q", s)
}

func (s Status) IsValid() bool {
	_, ok := statusSeverity[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// Severity ranks the status; unknown values rank as Red.
func (s Status) Severity() int {
	if sev, ok := statusSeverity[s]; ok {
		return sev
	}
	return statusSeverity[StatusRed]
}

// WorseThan reports whether s is strictly more severe than other.
func (s Status) WorseThan(other Status) bool {
	return s.Severity() > other.Severity()
}

// Folded maps a category status onto the organization scale, where Orange and
// Red are both non-compliant. Unknown values fold to Red.
func (s Status) Folded() Status {
	switch s {
	case StatusGreen, StatusYellow:
		return s
	default:
		return StatusRed
	}
}

// Worst returns the most severe status in statuses after folding, or Red when
// statuses is empty.
func Worst(statuses ...Status) Status {
	if len(statuses) == 0 {
		return StatusRed
	}
	worst := StatusGreen
	for _, s := range statuses {
		if f := s.Folded(); f.WorseThan(worst) {
			worst = f
		}
	}
	return worst
}
