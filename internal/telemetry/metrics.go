package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Причины отбрасывания сообщений.
const (
	DropReasonDecode      = "decode"
	DropReasonUnknownTask = "unknown_task"
)

// Metrics — метрики обработки задач воркером.
//
// Все методы безопасны для nil-получателя: компоненты могут работать
// без метрик.
type Metrics struct {
	received    prometheus.Counter
	dropped     *prometheus.CounterVec
	executed    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	saveErrors  prometheus.Counter
	middlewares *prometheus.CounterVec
}

// NewMetrics создаёт метрики и регистрирует их в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskrun_messages_received_total",
			Help: "Messages received from the broker.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskrun_messages_dropped_total",
			Help: "Messages dropped without execution.",
		}, []string{"reason"}),
		executed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskrun_tasks_executed_total",
			Help: "Executed tasks by outcome.",
		}, []string{"task_name", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskrun_task_duration_seconds",
			Help:    "Task body execution time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task_name"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskrun_tasks_in_flight",
			Help: "Messages currently being processed.",
		}),
		saveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskrun_result_save_errors_total",
			Help: "Failed writes to the result backend.",
		}),
		middlewares: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskrun_middleware_errors_total",
			Help: "Errors returned by middleware hooks.",
		}, []string{"hook"}),
	}

	reg.MustRegister(m.received, m.dropped, m.executed, m.duration, m.inFlight, m.saveErrors, m.middlewares)
	return m
}

// Received учитывает полученное сообщение.
func (m *Metrics) Received() {
	if m == nil {
		return
	}
	m.received.Inc()
}

// Dropped учитывает отброшенное сообщение.
func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

// Executed учитывает выполненную задачу.
func (m *Metrics) Executed(taskName, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.executed.WithLabelValues(taskName, status).Inc()
	m.duration.WithLabelValues(taskName).Observe(d.Seconds())
}

// InFlightInc увеличивает число обрабатываемых сообщений.
func (m *Metrics) InFlightInc() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// InFlightDec уменьшает число обрабатываемых сообщений.
func (m *Metrics) InFlightDec() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// SaveError учитывает ошибку записи результата.
func (m *Metrics) SaveError() {
	if m == nil {
		return
	}
	m.saveErrors.Inc()
}

// MiddlewareError учитывает ошибку хука middleware.
func (m *Metrics) MiddlewareError(hook string) {
	if m == nil {
		return
	}
	m.middlewares.WithLabelValues(hook).Inc()
}
