package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCacheCollector(func() (uint64, uint64, uint64) {
		return 5, 2, 3
	})))

	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += ":" + lp.GetValue()
			}
			got[name] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		"giveaway_cache_hits_total:l1": 5,
		"giveaway_cache_hits_total:l2": 2,
		"giveaway_cache_loads_total":   3,
	}, got)
}
