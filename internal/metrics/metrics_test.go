package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRegistered(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200").Inc()
	NodeWrites.WithLabelValues("create").Inc()

	families, err := Registry.Gather()
	require.NoError(t, err)
	counters := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if c := m.GetCounter(); c != nil {
				counters[f.GetName()] += c.GetValue()
			}
		}
	}
	assert.GreaterOrEqual(t, counters["trading_http_requests_total"], float64(1))
	assert.GreaterOrEqual(t, counters["trading_node_writes_total"], float64(1))
	_, hasGo := counters["go_memstats_alloc_bytes_total"]
	assert.True(t, hasGo)
}
