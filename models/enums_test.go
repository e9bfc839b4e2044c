package models

import "testing"

func TestMandateTransitions(t *testing.T) {
	allowed := []struct {
		from, to MandateStatus
	}{
		{MandateStatusActive, MandateStatusPaused},
		{MandateStatusActive, MandateStatusRevoked},
		{MandateStatusPaused, MandateStatusActive},
		{MandateStatusPaused, MandateStatusRevoked},
	}
	for _, c := range allowed {
		if !c.from.CanTransitionTo(c.to) {
			t.Errorf("%s -> %s should be allowed", c.from, c.to)
		}
	}

	denied := []struct {
		from, to MandateStatus
	}{
		{MandateStatusRevoked, MandateStatusActive},
		{MandateStatusRevoked, MandateStatusPaused},
		{MandateStatusRevoked, MandateStatusRevoked},
		{MandateStatusActive, MandateStatusActive}, // same-state no-op is not a transition
		{MandateStatusPaused, MandateStatusPaused},
	}
	for _, c := range denied {
		if c.from.CanTransitionTo(c.to) {
			t.Errorf("%s -> %s should be denied", c.from, c.to)
		}
	}
}

func TestBatchTransitions_OneDirectional(t *testing.T) {
	allowed := []struct {
		from, to BatchStatus
	}{
		{BatchStatusCreated, BatchStatusExported},
		{BatchStatusExported, BatchStatusSubmitted},
		{BatchStatusExported, BatchStatusFailed},
		{BatchStatusSubmitted, BatchStatusExecuted},
		{BatchStatusSubmitted, BatchStatusFailed},
	}
	for _, c := range allowed {
		if !c.from.CanTransitionTo(c.to) {
			t.Errorf("%s -> %s should be allowed", c.from, c.to)
		}
	}

	// No state may ever move backwards.
	order := []BatchStatus{BatchStatusCreated, BatchStatusExported, BatchStatusSubmitted, BatchStatusExecuted}
	for i, later := range order {
		for _, earlier := range order[:i] {
			if later.CanTransitionTo(earlier) {
				t.Errorf("%s -> %s would revert the lifecycle", later, earlier)
			}
		}
	}

	for _, terminal := range []BatchStatus{BatchStatusExecuted, BatchStatusFailed} {
		if !terminal.IsTerminal() {
			t.Errorf("%s should be terminal", terminal)
		}
		for _, next := range []BatchStatus{BatchStatusCreated, BatchStatusExported, BatchStatusSubmitted, BatchStatusExecuted, BatchStatusFailed} {
			if terminal.CanTransitionTo(next) {
				t.Errorf("%s -> %s should be denied", terminal, next)
			}
		}
	}

	// created may not skip the export step.
	for _, next := range []BatchStatus{BatchStatusSubmitted, BatchStatusExecuted, BatchStatusFailed} {
		if BatchStatusCreated.CanTransitionTo(next) {
			t.Errorf("created -> %s should be denied", next)
		}
	}
}

func TestStatusValidity(t *testing.T) {
	if MandateStatus("deleted").IsValid() {
		t.Error("unknown mandate status accepted")
	}
	if BatchStatus("draft").IsValid() {
		t.Error("unknown batch status accepted")
	}
	if !MandateStatusActive.IsValid() || !BatchStatusCreated.IsValid() {
		t.Error("known statuses rejected")
	}
}
