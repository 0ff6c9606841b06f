package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxddry/hr-rag/internal/domain"
)

func TestRecorder(t *testing.T) {
	t.Run("Should count classifications and citations", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		r, err := New(reg)
		require.NoError(t, err)

		r.Classified(domain.MethodFastCache, domain.PathCached)
		r.Classified(domain.MethodFastCache, domain.PathCached)
		r.Cited(true)
		r.Cited(false)
		r.Observe("batch", 120*time.Millisecond)

		assert.Equal(t, 2.0, testutil.ToFloat64(r.classifications.WithLabelValues("fast_cache", "cached")))
		assert.Equal(t, 1.0, testutil.ToFloat64(r.citations.WithLabelValues("selected")))
		assert.Equal(t, 1.0, testutil.ToFloat64(r.citations.WithLabelValues("suppressed")))
		assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
	})

	t.Run("Should refuse a second registration", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		_, err := New(reg)
		require.NoError(t, err)

		_, err = New(reg)
		assert.Error(t, err)
	})

	t.Run("Should ignore calls on a nil recorder", func(t *testing.T) {
		var r *Recorder
		assert.NotPanics(t, func() {
			r.Classified(domain.MethodLLM, domain.PathRAG)
			r.Observe("stream", time.Second)
			r.Cited(true)
		})
	})

	t.Run("Should serve the metrics", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		r, err := New(reg)
		require.NoError(t, err)
		r.Cited(true)

		rec := httptest.NewRecorder()
		Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `hrrag_citations_total{outcome="selected"} 1`)
	})
}
