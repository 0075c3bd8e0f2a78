package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordResolve("Management", "provisioned", 0.1)
		m.RecordResolveError("Management", "remote")
		m.RecordRemoteCall("GET", "200")
		m.RecordCloneOutcome("graph", "applied")
		m.RecordGroupCreated()
		m.RecordCollectionCreated()
		m.RecordDashboardCopied()
		m.RecordOrphanedCopy()
		m.RecordTokenIssued()
		m.RecordCacheHit("mapping")
		m.RecordCacheMiss("mapping")
	})
}

func TestMetrics_RecordsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordGroupCreated()
	m.RecordGroupCreated()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.GroupsCreated))

	m.RecordResolve("Management", "provisioned", 0.1)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ResolvesTotal.WithLabelValues("Management", "provisioned")))

	m.RecordRemoteCall("GET", "200")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RemoteCalls.WithLabelValues("GET", "200")))
}
