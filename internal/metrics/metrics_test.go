package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordResolution(t *testing.T) {
	before := testutil.ToFloat64(resolutions.WithLabelValues("found"))
	RecordResolution("found")
	RecordResolution("found")
	assert.Equal(t, before+2, testutil.ToFloat64(resolutions.WithLabelValues("found")))
}

func TestRecordCounters(t *testing.T) {
	hits := testutil.ToFloat64(resolutionCacheHits)
	nodes := testutil.ToFloat64(nodesCreated)
	fetches := testutil.ToFloat64(remoteFetches.WithLabelValues("reused"))
	diags := testutil.ToFloat64(diagnosticsTotal.WithLabelValues("resolve/missing"))

	RecordCacheHit()
	RecordNodeCreated()
	RecordRemoteFetch("reused")
	RecordDiagnostic("resolve/missing")

	assert.Equal(t, hits+1, testutil.ToFloat64(resolutionCacheHits))
	assert.Equal(t, nodes+1, testutil.ToFloat64(nodesCreated))
	assert.Equal(t, fetches+1, testutil.ToFloat64(remoteFetches.WithLabelValues("reused")))
	assert.Equal(t, diags+1, testutil.ToFloat64(diagnosticsTotal.WithLabelValues("resolve/missing")))
}

func TestRecordSeed(t *testing.T) {
	RecordSeed(time.Now(), nil)
	RecordSeed(time.Now(), errors.New("boom"))
	assert.Equal(t, 2, testutil.CollectAndCount(seedDuration))
}
