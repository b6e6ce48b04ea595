package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "votegate"

var durationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5}

type Service struct {
	registry *prometheus.Registry

	issueTotal     *prometheus.CounterVec
	issueDuration  *prometheus.HistogramVec
	verifyTotal    *prometheus.CounterVec
	verifyDuration *prometheus.HistogramVec
	notifyTotal    *prometheus.CounterVec
	sweptTotal     prometheus.Counter
	sweepErrors    prometheus.Counter
	httpRequests   *prometheus.CounterVec
}

func NewService() *Service {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Service{
		registry: registry,
		issueTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_issue_total",
			Help:      "One-time code issue attempts by outcome",
		}, []string{"outcome"}),
		issueDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "otp_issue_duration_seconds",
			Help:      "Duration of one-time code issue calls",
			Buckets:   durationBuckets,
		}, []string{"outcome"}),
		verifyTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verify_total",
			Help:      "One-time code verification attempts by outcome",
		}, []string{"outcome"}),
		verifyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "otp_verify_duration_seconds",
			Help:      "Duration of one-time code verification calls",
			Buckets:   durationBuckets,
		}, []string{"outcome"}),
		notifyTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_notification_total",
			Help:      "Code delivery attempts by status",
		}, []string{"status"}),
		sweptTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_swept_records_total",
			Help:      "Expired pending records removed by the sweeper",
		}),
		sweepErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_sweep_errors_total",
			Help:      "Failed sweeper runs",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
	}
}

func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Service) ObserveIssue(outcome string, elapsed time.Duration) {
	s.issueTotal.WithLabelValues(outcome).Inc()
	s.issueDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (s *Service) ObserveVerify(outcome string, elapsed time.Duration) {
	s.verifyTotal.WithLabelValues(outcome).Inc()
	s.verifyDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (s *Service) ObserveNotify(err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	s.notifyTotal.WithLabelValues(status).Inc()
}

func (s *Service) ObserveSweep(deleted int64, err error) {
	if err != nil {
		s.sweepErrors.Inc()
		return
	}
	s.sweptTotal.Add(float64(deleted))
}

func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

func (s *Service) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			s.httpRequests.WithLabelValues(route, c.Request().Method, strconv.Itoa(status)).Inc()
			return err
		}
	}
}
