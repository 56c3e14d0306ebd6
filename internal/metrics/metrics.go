package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Cycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purdueplot_cycles_total",
		Help: "Snapshots written to disk",
	})
	CycleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purdueplot_cycle_errors_total",
		Help: "Cycles that failed to write the CSV files",
	})
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purdueplot_fetch_errors_total",
		Help: "Failed requests to the VISTA API by source",
	}, []string{"source"})
	SinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purdueplot_sink_errors_total",
		Help: "Failed deliveries to archive, mqtt, s3 or redis",
	}, []string{"sink"})
	Rows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "purdueplot_rows",
		Help: "Rows in the latest snapshot by file",
	}, []string{"category"})
	LastSnapshot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "purdueplot_last_snapshot_timestamp_seconds",
		Help: "Unix time the last snapshot was written",
	})
	CycleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "purdueplot_cycle_duration_seconds",
		Help:    "Time from fetch start to CSV files replaced",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveCycleLatency(start time.Time) {
	CycleLatency.Observe(time.Since(start).Seconds())
}

// Handler serves /metrics and /healthz
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// StartServer serves Handler on addr in the background. errFn receives the
// error if the listener fails.
func StartServer(addr string, errFn func(error)) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && errFn != nil {
			errFn(err)
		}
	}()
	return srv
}
