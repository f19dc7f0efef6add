package httpapi

import (
	"net/http"
	"time"

	"txledger/internal/application"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the service's Prometheus registry. It observes pipeline results
// and the Kafka intake loop.
type Metrics struct {
	registry  *prometheus.Registry
	startTime time.Time

	results         *prometheus.CounterVec
	kafkaMessages   prometheus.Counter
	kafkaDecodeErrs prometheus.Counter
	kafkaFetchErrs  prometheus.Counter
	kafkaCommitErrs prometheus.Counter
	kafkaPublishErr prometheus.Counter
	ledgerConnected prometheus.Gauge
	uptime          prometheus.GaugeFunc
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txledger_results_total",
			Help: "Trigger results by kind",
		}, []string{"kind"}),
		kafkaMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "txledger_kafka_messages_total",
			Help: "Trigger messages consumed",
		}),
		kafkaDecodeErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "txledger_kafka_decode_errors_total",
			Help: "Trigger messages that could not be decoded",
		}),
		kafkaFetchErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "txledger_kafka_fetch_errors_total",
			Help: "Errors fetching from the trigger topic",
		}),
		kafkaCommitErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "txledger_kafka_commit_errors_total",
			Help: "Errors committing trigger offsets",
		}),
		kafkaPublishErr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "txledger_kafka_publish_errors_total",
			Help: "Errors publishing outcome messages",
		}),
		ledgerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "txledger_ledger_connected",
			Help: "1 when the ledger store is connected",
		}),
	}
	m.uptime = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "txledger_uptime_seconds",
		Help: "Seconds since process start",
	}, func() float64 { return time.Since(m.startTime).Seconds() })

	m.registry.MustRegister(
		m.results,
		m.kafkaMessages,
		m.kafkaDecodeErrs,
		m.kafkaFetchErrs,
		m.kafkaCommitErrs,
		m.kafkaPublishErr,
		m.ledgerConnected,
		m.uptime,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) OnResult(kind application.ResultKind) {
	m.results.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) SetLedgerConnected(connected bool) {
	if connected {
		m.ledgerConnected.Set(1)
		return
	}
	m.ledgerConnected.Set(0)
}

func (m *Metrics) IncKafkaMessage()    { m.kafkaMessages.Inc() }
func (m *Metrics) IncKafkaDecodeErr()  { m.kafkaDecodeErrs.Inc() }
func (m *Metrics) IncKafkaFetchErr()   { m.kafkaFetchErrs.Inc() }
func (m *Metrics) IncKafkaCommitErr()  { m.kafkaCommitErrs.Inc() }
func (m *Metrics) IncKafkaPublishErr() { m.kafkaPublishErr.Inc() }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
