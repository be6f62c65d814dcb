package metrics

// Gin middleware adapted from github.com/zsais/go-gin-prometheus. Push gateway,
// basic auth and the self-managed listener are gone; the metrics engine is
// started by the caller's fx lifecycle.

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpLabels = []string{"code", "method", "route"}

var reqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "req_total",
	Description: "HTTP requests by status code, method and route.",
	Type:        "counter_vec",
	Args:        httpLabels,
}

var reqDur = &Metric{
	ID:          "reqDur",
	Name:        "req_dur_ms",
	Description: "HTTP request latencies in milliseconds.",
	Type:        "histogram_vec",
	Args:        httpLabels,
}

var reqSz = &Metric{
	ID:          "reqSz",
	Name:        "req_sz_bytes",
	Description: "Approximate HTTP request sizes in bytes.",
	Type:        "summary_vec",
	Args:        httpLabels,
}

var resSz = &Metric{
	ID:          "resSz",
	Name:        "resp_sz_bytes",
	Description: "HTTP response sizes in bytes.",
	Type:        "summary_vec",
	Args:        httpLabels,
}

var httpMetrics = []*Metric{reqCnt, reqDur, reqSz, resSz}

const defaultMetricPath = "/metrics"

type Logger interface {
	Errorf(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Errorf(string, ...interface{}) {}

// RouteLabelFn maps a request to its "route" label. Return the route template,
// not the raw path, or every booking id becomes its own series.
type RouteLabelFn func(c *gin.Context) string

// Prometheus owns the HTTP collectors plus any extra metrics passed in
// MetricsList.
type Prometheus struct {
	reqCnt       *prometheus.CounterVec
	reqDur       *prometheus.HistogramVec
	reqSz, resSz *prometheus.SummaryVec

	MetricsList []*Metric
	MetricsPath string
	RouteLabel  RouteLabelFn

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	logger     Logger
}

type NewPrometheusOptions struct {
	Subsystem   string
	MetricsList []*Metric
	MetricsPath string
	RouteLabel  RouteLabelFn
	Logger      Logger
	// Registry defaults to the global prometheus registry.
	Registry *prometheus.Registry
}

func NewPrometheus(options NewPrometheusOptions) *Prometheus {
	p := &Prometheus{
		MetricsList: append(append([]*Metric{}, options.MetricsList...), httpMetrics...),
		MetricsPath: options.MetricsPath,
		RouteLabel:  options.RouteLabel,
		registerer:  prometheus.DefaultRegisterer,
		gatherer:    prometheus.DefaultGatherer,
		logger:      options.Logger,
	}
	if options.Registry != nil {
		p.registerer = options.Registry
		p.gatherer = options.Registry
	}
	if p.MetricsPath == "" {
		p.MetricsPath = defaultMetricPath
	}
	if p.RouteLabel == nil {
		p.RouteLabel = func(c *gin.Context) string { return c.Request.URL.Path }
	}
	if p.logger == nil {
		p.logger = nopLogger{}
	}

	p.registerMetrics(options.Subsystem)
	return p
}

// Handler serves the gathered metrics.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// NewMetricsEngine returns a bare engine serving only the metrics path.
func (p *Prometheus) NewMetricsEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(p.MetricsPath, gin.WrapH(p.Handler()))
	return r
}

func (p *Prometheus) registerMetrics(subsystem string) {
	for _, def := range p.MetricsList {
		metric := NewMetric(def, subsystem)
		if metric == nil {
			p.logger.Errorf("metric %s has unsupported type %q", def.Name, def.Type)
			continue
		}
		if err := p.registerer.Register(metric); err != nil {
			p.logger.Errorf("%s could not be registered in Prometheus, err=%v", def.Name, err)
		}
		switch def {
		case reqCnt:
			p.reqCnt = metric.(*prometheus.CounterVec)
		case reqDur:
			p.reqDur = metric.(*prometheus.HistogramVec)
		case reqSz:
			p.reqSz = metric.(*prometheus.SummaryVec)
		case resSz:
			p.resSz = metric.(*prometheus.SummaryVec)
		}
		def.MetricCollector = metric
	}
}

// HandlerFunc records request count, latency and sizes for every request
// except scrapes of the metrics path.
func (p *Prometheus) HandlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == p.MetricsPath {
			c.Next()
			return
		}

		start := time.Now()
		in := approximateRequestSize(c.Request)

		c.Next()

		labels := []string{strconv.Itoa(c.Writer.Status()), c.Request.Method, p.RouteLabel(c)}
		p.reqDur.WithLabelValues(labels...).Observe(MillisecondsSince(start))
		p.reqCnt.WithLabelValues(labels...).Inc()
		p.reqSz.WithLabelValues(labels...).Observe(float64(in))
		p.resSz.WithLabelValues(labels...).Observe(float64(c.Writer.Size()))
	}
}

// MillisecondsSince returns the elapsed time since start in milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

func approximateRequestSize(r *http.Request) int {
	s := len(r.Method) + len(r.Proto) + len(r.Host)
	if r.URL != nil {
		s += len(r.URL.Path)
	}
	for name, values := range r.Header {
		s += len(name)
		for _, v := range values {
			s += len(v)
		}
	}
	if r.ContentLength > 0 {
		s += int(r.ContentLength)
	}
	return s
}
