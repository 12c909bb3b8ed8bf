package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDeriveRunStatus(t *testing.T) {
	tests := []struct {
		name       string
		state      RunStatus
		produced   string
		dispatched string
		want       RunStatus
	}{
		{"fresh pending run", RunPending, "100", "0", RunPending},
		{"declared completed", RunCompleted, "100", "0", RunCompleted},
		{"partially dispatched overrides state", RunPending, "100", "35.203", RunPartiallyDispatched},
		{"fully dispatched", RunCompleted, "95", "95", RunFullyDispatched},
		{"empty state defaults to pending", "", "10", "0", RunPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveRunStatus(tt.state, d(tt.produced), d(tt.dispatched))
			if got != tt.want {
				t.Errorf("DeriveRunStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProductionRunRefresh(t *testing.T) {
	run := ProductionRun{ProducedQty: d("95"), DispatchedQty: d("35.203"), ProductionState: RunCompleted}
	run.Refresh()
	if !run.AvailableQty.Equal(d("59.797")) {
		t.Errorf("available = %s, want 59.797", run.AvailableQty)
	}
	if run.Status != RunPartiallyDispatched {
		t.Errorf("status = %s", run.Status)
	}

	b, err := json.Marshal(run)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out["availableQty"] != 59.797 {
		t.Errorf("availableQty should marshal as a number, got %#v", out["availableQty"])
	}
	if out["status"] != string(RunPartiallyDispatched) {
		t.Errorf("status json = %#v", out["status"])
	}
}

func TestIsDeclarableState(t *testing.T) {
	for _, s := range []RunStatus{RunPending, RunCompleted} {
		if !IsDeclarableState(s) {
			t.Errorf("%s should be declarable", s)
		}
	}
	for _, s := range []RunStatus{RunPartiallyDispatched, RunFullyDispatched, "DONE"} {
		if IsDeclarableState(s) {
			t.Errorf("%s should not be declarable", s)
		}
	}
}
