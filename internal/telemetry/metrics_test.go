package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordApproval(t *testing.T) {
	ApprovalsTotal.Reset()
	RecordApproval("approved")
	RecordApproval("approved")
	RecordApproval("rejected")

	if got := testutil.ToFloat64(ApprovalsTotal.WithLabelValues("approved")); got != 2 {
		t.Errorf("approved count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(ApprovalsTotal.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected count = %v, want 1", got)
	}
}

func TestRecordScheduledJob(t *testing.T) {
	ScheduledJobsTotal.Reset()
	RecordScheduledJob("executed")

	if got := testutil.ToFloat64(ScheduledJobsTotal.WithLabelValues("executed")); got != 1 {
		t.Errorf("executed count = %v, want 1", got)
	}
}

func TestRecordNotification(t *testing.T) {
	NotificationsTotal.Reset()
	RecordNotification("telegram", "sent")
	RecordNotification("telegram", "skipped")

	if got := testutil.ToFloat64(NotificationsTotal.WithLabelValues("telegram", "sent")); got != 1 {
		t.Errorf("sent count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(NotificationsTotal.WithLabelValues("telegram", "skipped")); got != 1 {
		t.Errorf("skipped count = %v, want 1", got)
	}
}

func TestSetKillSwitchActive(t *testing.T) {
	SetKillSwitchActive(true)
	if got := testutil.ToFloat64(KillSwitchActive); got != 1 {
		t.Errorf("kill switch gauge = %v, want 1", got)
	}
	SetKillSwitchActive(false)
	if got := testutil.ToFloat64(KillSwitchActive); got != 0 {
		t.Errorf("kill switch gauge = %v, want 0", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	if Handler() == nil {
		t.Fatal("want a non-nil metrics handler")
	}
}
