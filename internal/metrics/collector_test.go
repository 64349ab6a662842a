package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/convskills/internal/cache"
	"github.com/BaSui01/convskills/oms"
	"github.com/BaSui01/convskills/skill"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollectorWithRegisterer(nextTestNamespace(), prometheus.NewRegistry(), zap.NewNop())
}

// 编译期检查 Collector 满足各观察接口
var (
	_ skill.Observer      = (*Collector)(nil)
	_ oms.RequestObserver = (*Collector)(nil)
	_ cache.Stats         = (*Collector)(nil)
)

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.httpRequestDuration)
	assert.NotNil(t, collector.skillTurnsTotal)
	assert.NotNil(t, collector.skillLateralsTotal)
	assert.NotNil(t, collector.omsRequestsTotal)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 1024, 2048)
	collector.RecordHTTPRequest("GET", "/test", 200, 50*time.Millisecond, 512, 1024)
	collector.RecordHTTPRequest("POST", "/test", 503, 50*time.Millisecond, 512, 1024)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/test", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/test", "5xx")))
}

func TestCollector_ObserveTurn(t *testing.T) {
	collector := newTestCollector(t)

	collector.ObserveTurn("lookup-order", skill.OutcomeInProgress, 20*time.Millisecond)
	collector.ObserveTurn("lookup-order", string(skill.ResolverComplete), 30*time.Millisecond)
	collector.ObserveTurn("lookup-order", string(skill.ResolverComplete), 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.skillTurnsTotal.WithLabelValues("lookup-order", "in_progress")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.skillTurnsTotal.WithLabelValues("lookup-order", "skill_complete")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.skillTurnDuration))
}

func TestCollector_ObserveLateral(t *testing.T) {
	collector := newTestCollector(t)

	collector.ObserveLateral("order-help", "cancel-order")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.skillLateralsTotal.WithLabelValues("order-help", "cancel-order")))
}

func TestCollector_ObserveOMSRequest(t *testing.T) {
	collector := newTestCollector(t)

	collector.ObserveOMSRequest("invoke/getPage", "ok", 200*time.Millisecond)
	collector.ObserveOMSRequest("invoke/getPage", "UPSTREAM_ERROR", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.omsRequestsTotal.WithLabelValues("invoke/getPage", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.omsRequestsTotal.WithLabelValues("invoke/getPage", "UPSTREAM_ERROR")))
}

func TestCollector_RecordCacheOperation(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordCacheHit("redis")
	collector.RecordCacheMiss("redis")
	collector.RecordCacheMiss("redis")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.cacheHits.WithLabelValues("redis")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.cacheMisses.WithLabelValues("redis")))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := newTestCollector(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 1024, 2048)
			collector.ObserveTurn("minimal", skill.OutcomeInProgress, time.Millisecond)
			collector.RecordCacheHit("redis")
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/test", "2xx")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.skillTurnsTotal.WithLabelValues("minimal", "in_progress")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.cacheHits.WithLabelValues("redis")))
}

func TestCollector_MetricsRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	namespace := nextTestNamespace()
	collector := NewCollectorWithRegisterer(namespace, registry, zap.NewNop())

	collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 0, 0)
	collector.ObserveTurn("minimal", skill.OutcomeInProgress, time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, namespace+"_http_requests_total")
	assert.Contains(t, names, namespace+"_skill_turns_total")

	// 同一 registry 重复注册同名指标会 panic
	assert.Panics(t, func() { NewCollectorWithRegisterer(namespace, registry, zap.NewNop()) })
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(302))
	assert.Equal(t, "4xx", statusCode(401))
	assert.Equal(t, "5xx", statusCode(502))
	assert.Equal(t, "unknown", statusCode(0))
}
