package cloudmetrics

import (
	"strings"
	"sync"
)

// Recorder receives settlement accounting events. Callers use the package
// level functions so code paths stay identical whether cloud metrics are
// enabled or not.
type Recorder interface {
	RecordSettlement(provider, currency string, amount int64)
	RecordRefund(provider string)
}

type noopRecorder struct{}

func (noopRecorder) RecordSettlement(string, string, int64) {}
func (noopRecorder) RecordRefund(string)                    {}

var (
	activeRecorder Recorder = noopRecorder{}
	recorderMu     sync.RWMutex
)

func setRecorder(rec Recorder) {
	if rec == nil {
		return
	}
	recorderMu.Lock()
	activeRecorder = rec
	recorderMu.Unlock()
}

func RecordSettlement(provider, currency string, amount int64) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordSettlement(provider, currency, amount)
}

func RecordRefund(provider string) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordRefund(provider)
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
