package metrics

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newPrometheus(log *zap.SugaredLogger) *Prometheus {
	return NewPrometheus(NewPrometheusOptions{
		MetricsList: BusinessMetrics,
		RouteLabel: func(c *gin.Context) string {
			if fp := c.FullPath(); fp != "" {
				return fp
			}
			return "unmatched"
		},
		Logger: log,
	})
}

var Module = fx.Options(
	fx.Provide(newPrometheus, NewRecorder),
)
