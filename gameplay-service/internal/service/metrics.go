package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	adventuresStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameplay_adventures_started_total",
		Help: "Adventures created, by template.",
	}, []string{"template"})

	adventuresCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameplay_adventures_completed_total",
		Help: "Adventures completed, by whether a build was attached.",
	}, []string{"build"})

	choicesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameplay_choices_total",
		Help: "Choose calls by outcome.",
	}, []string{"outcome"})

	progressRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gameplay_progress_recovered_total",
		Help: "Progress records recreated from the adventure stage during Initialize.",
	})

	avatarTasksPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameplay_avatar_tasks_total",
		Help: "Avatar generation tasks by publish status.",
	}, []string{"status"})
)
