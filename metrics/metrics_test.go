package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	assert.NotNil(t, AnalysesTotal)
	assert.NotNil(t, AnalysisDuration)
	assert.NotNil(t, IndicatorsExtracted)
	assert.NotNil(t, QueryGenerations)
	assert.NotNil(t, ScrapeAttempts)
	assert.NotNil(t, LLMRequests)
	assert.NotNil(t, LLMRequestDuration)
	assert.NotNil(t, ValidationFailures)
	assert.NotNil(t, RateLimitRejections)
	assert.NotNil(t, AuthEvents)
	assert.NotNil(t, APIRequests)
	assert.NotNil(t, APIPanics)
	assert.NotNil(t, GoroutinePanics)
	assert.NotNil(t, DBPoolOpenConnections)
}

func TestCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(AnalysesTotal.WithLabelValues("cache"))
	AnalysesTotal.WithLabelValues("cache").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AnalysesTotal.WithLabelValues("cache")))

	DBPoolInUse.WithLabelValues("write").Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(DBPoolInUse.WithLabelValues("write")))
}
