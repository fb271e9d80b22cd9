package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncEventPublished("status_changed")
	})

	before := testutil.ToFloat64(transitions.WithLabelValues("approved"))
	IncTransition("approved")
	assert.Equal(t, before+1, testutil.ToFloat64(transitions.WithLabelValues("approved")))

	before = testutil.ToFloat64(conflicts.WithLabelValues("version"))
	IncConflict("version")
	assert.Equal(t, before+1, testutil.ToFloat64(conflicts.WithLabelValues("version")))
}
