package scrape

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemediationHintsSuccess(t *testing.T) {
	report := &DiagnosticsReport{
		Success: true,
		Browser: BrowserChecks{Launch: true, Navigation: true, ContentExtraction: true},
		Network: NetworkChecks{Reachable: true},
	}
	assert.Empty(t, remediationHints(report))
}

func TestRemediationHintsUnreachable(t *testing.T) {
	report := &DiagnosticsReport{
		Browser: BrowserChecks{Launch: true},
		Network: NetworkChecks{Reachable: false},
	}
	hints := remediationHints(report)
	require.NotEmpty(t, hints)

	found := false
	for _, h := range hints {
		lower := strings.ToLower(h)
		if strings.Contains(lower, "reachable") || strings.Contains(lower, "network") {
			found = true
		}
	}
	assert.True(t, found, "at least one hint must reference network/reachability")
}

func TestRemediationHintsLaunchFailure(t *testing.T) {
	report := &DiagnosticsReport{}
	hints := remediationHints(report)
	require.NotEmpty(t, hints)
	assert.Contains(t, hints[0], "Browser launch")
}

func TestRemediationHintsExtractionFailure(t *testing.T) {
	report := &DiagnosticsReport{
		Browser: BrowserChecks{Launch: true, Navigation: true, ContentExtraction: false},
		Network: NetworkChecks{Reachable: true},
	}
	hints := remediationHints(report)
	require.NotEmpty(t, hints)
	assert.Contains(t, strings.Join(hints, " "), "extraction")
}
