package audit

import (
	"encoding/json"
	"testing"
)

func TestSnapshotNilProducesNil(t *testing.T) {
	data, err := Snapshot(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data != nil {
		t.Fatalf("expected nil snapshot for nil entity, got %s", data)
	}
}

func TestSnapshotRoundTripsEntityState(t *testing.T) {
	type state struct {
		Status string `json:"status"`
		Owner  string `json:"owner,omitempty"`
	}

	data, err := Snapshot(state{Status: "in_sales_pool"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded state
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if decoded.Status != "in_sales_pool" {
		t.Fatalf("expected status preserved, got %q", decoded.Status)
	}
	if decoded.Owner != "" {
		t.Fatalf("expected empty owner omitted, got %q", decoded.Owner)
	}
}

func TestSnapshotRejectsUnmarshalableValue(t *testing.T) {
	if _, err := Snapshot(make(chan int)); err == nil {
		t.Fatal("expected error for unmarshalable value")
	}
}
