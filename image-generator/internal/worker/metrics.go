package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_generator_tasks_processed_total",
			Help: "Total number of avatar generation tasks processed.",
		},
		[]string{"status"}, // success, error_generation, error_save, error_invalid, error_publish, error_unmarshal
	)
	taskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_generator_task_duration_seconds",
		Help:    "Duration of avatar generation task processing.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
	publishResultErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_generator_publish_result_errors_total",
		Help: "Total number of errors publishing task results.",
	})
)
