package persistence

import "testing"

func TestIndexNamingDefaults(t *testing.T) {
	if got := ResultsIndexName("farequote"); got != "anomaly-results-farequote" {
		t.Fatalf("unexpected results index: %q", got)
	}
	if got := StateIndexName(); got != "anomaly-state" {
		t.Fatalf("unexpected state index: %q", got)
	}
}
