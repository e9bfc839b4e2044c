package models

import (
	"testing"
	"time"
)

func TestFormatMandateReference(t *testing.T) {
	if got := FormatMandateReference("dojo-munich-1", 7); got != "DM-DOJOMUNI-000007" {
		t.Fatalf("got %q", got)
	}
	// uuid-shaped tenant ids keep only SEPA-safe characters
	if got := FormatMandateReference("a81bc81b-dead-4e5d-abff-90865d1e13b1", 42); got != "DM-A81BC81B-000042" {
		t.Fatalf("got %q", got)
	}
	if got := FormatMandateReference("---", 1); got != "DM-TENANT-000001" {
		t.Fatalf("unusable tenant id fallback: got %q", got)
	}
	if len(FormatMandateReference("a81bc81b-dead-4e5d-abff-90865d1e13b1", 999999)) > 35 {
		t.Fatal("mandate reference exceeds the 35 character cap")
	}
}

func TestFormatBatchReference(t *testing.T) {
	now := time.Date(2026, time.March, 1, 23, 30, 0, 0, time.UTC)
	if got := FormatBatchReference(now, 1); got != "DD-20260301-000001" {
		t.Fatalf("got %q", got)
	}
	// date part is always UTC
	berlin := time.FixedZone("CET", 3600)
	late := time.Date(2026, time.March, 2, 0, 30, 0, 0, berlin) // still Mar 1 in UTC
	if got := FormatBatchReference(late, 2); got != "DD-20260301-000002" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatEndToEndId(t *testing.T) {
	if got := FormatEndToEndId("DD-20260301-000001", 1); got != "DD-20260301-000001-T0001" {
		t.Fatalf("got %q", got)
	}
	if got := FormatEndToEndId("DD-20260301-000001", 1234); got != "DD-20260301-000001-T1234" {
		t.Fatalf("got %q", got)
	}
	if len(FormatEndToEndId("DD-20260301-000001", 9999)) > 35 {
		t.Fatal("end-to-end id exceeds the 35 character cap")
	}
}
