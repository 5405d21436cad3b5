package scans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTo_HappyPath(t *testing.T) {
	t.Parallel()

	job := &ScanJob{ScanID: "s1", Status: StatusPending}

	require.NoError(t, job.TransitionTo(StatusProcessing, RiskNone))
	assert.Equal(t, StatusProcessing, job.Status)

	require.NoError(t, job.TransitionTo(StatusCompleted, RiskHigh))
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, RiskHigh, job.RiskLevel)
}

func TestTransitionTo_FailurePath(t *testing.T) {
	t.Parallel()

	job := &ScanJob{ScanID: "s1", Status: StatusProcessing}
	require.NoError(t, job.TransitionTo(StatusFailed, RiskNone))
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, RiskNone, job.RiskLevel)
}

func TestTransitionTo_RejectsIllegalMoves(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		from Status
		to   Status
		risk RiskLevel
	}{
		{"pending to completed skips processing", StatusPending, StatusCompleted, RiskLow},
		{"pending to failed skips processing", StatusPending, StatusFailed, RiskNone},
		{"completed to processing goes backwards", StatusCompleted, StatusProcessing, RiskNone},
		{"completed to failed flips terminal state", StatusCompleted, StatusFailed, RiskNone},
		{"failed to completed flips terminal state", StatusFailed, StatusCompleted, RiskLow},
		{"processing to pending goes backwards", StatusProcessing, StatusPending, RiskNone},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			job := &ScanJob{ScanID: "s1", Status: tc.from, RiskLevel: RiskNone}
			err := job.TransitionTo(tc.to, tc.risk)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tc.from, job.Status, "status must be unchanged after a rejected transition")
		})
	}
}

func TestTransitionTo_RiskOnlyWithCompleted(t *testing.T) {
	t.Parallel()

	job := &ScanJob{Status: StatusPending}
	assert.ErrorIs(t, job.TransitionTo(StatusProcessing, RiskLow), ErrInvalidTransition)

	job = &ScanJob{Status: StatusProcessing}
	assert.ErrorIs(t, job.TransitionTo(StatusFailed, RiskCritical), ErrInvalidTransition)

	// completed without a risk level is just as wrong
	job = &ScanJob{Status: StatusProcessing}
	assert.ErrorIs(t, job.TransitionTo(StatusCompleted, RiskNone), ErrInvalidTransition)
}

func TestTransitionTo_TerminalReReportIsNoOp(t *testing.T) {
	t.Parallel()

	job := &ScanJob{Status: StatusCompleted, RiskLevel: RiskMedium}
	require.NoError(t, job.TransitionTo(StatusCompleted, RiskHigh))
	assert.Equal(t, RiskMedium, job.RiskLevel, "no-op must not overwrite the recorded risk")

	job = &ScanJob{Status: StatusFailed}
	require.NoError(t, job.TransitionTo(StatusFailed, RiskNone))
	assert.Equal(t, StatusFailed, job.Status)
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"pending", "processing", "completed", "failed"} {
		got, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), got)
	}
	_, err := ParseStatus("done")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestParseRiskLevel(t *testing.T) {
	t.Parallel()

	got, err := ParseRiskLevel("")
	require.NoError(t, err)
	assert.Equal(t, RiskNone, got)

	got, err = ParseRiskLevel("critical")
	require.NoError(t, err)
	assert.Equal(t, RiskCritical, got)

	_, err = ParseRiskLevel("severe")
	assert.Error(t, err)
}

func TestSeverityCountsRisk(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RiskCritical, SeverityCounts{Critical: 1, Low: 9}.Risk())
	assert.Equal(t, RiskHigh, SeverityCounts{High: 2, Medium: 5}.Risk())
	assert.Equal(t, RiskMedium, SeverityCounts{Medium: 1}.Risk())
	assert.Equal(t, RiskLow, SeverityCounts{Low: 3}.Risk())
	assert.Equal(t, RiskLow, SeverityCounts{}.Risk())
}
