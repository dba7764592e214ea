// Package builds resolves pre-authored character sheets by class and race.
package builds

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"adventure-server/shared/models"
	"adventure-server/shared/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

//go:embed builds.json
var defaultTable []byte

var lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gameplay_build_lookups_total",
	Help: "Build lookups by result (exact, fallback, missing).",
}, []string{"result"})

type tableEntry struct {
	Class string        `json:"class"`
	Race  string        `json:"race"`
	Build *models.Build `json:"build"`
}

type tableFile struct {
	DefaultRace string       `json:"defaultRace"`
	Builds      []tableEntry `json:"builds"`
}

type tableKey struct {
	class string
	race  string
}

func keyOf(class, race string) tableKey {
	return tableKey{class: normalize(class), race: normalize(race)}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Lookup is an immutable (class, race) -> Build table with a single-level
// fallback to the class's default-race entry.
type Lookup struct {
	defaultRace string
	builds      map[tableKey]*models.Build
	classes     []string
	logger      *zap.Logger
}

// NewDefault loads the embedded table.
func NewDefault(logger *zap.Logger) (*Lookup, error) {
	return New(defaultTable, logger)
}

// New parses a table document. Unknown fields are rejected so typos in
// authored sheets surface at startup.
func New(data []byte, logger *zap.Logger) (*Lookup, error) {
	var file tableFile
	if err := utils.DecodeStrict(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode build table: %w", err)
	}
	if strings.TrimSpace(file.DefaultRace) == "" {
		return nil, fmt.Errorf("build table: defaultRace is required")
	}

	l := &Lookup{
		defaultRace: normalize(file.DefaultRace),
		builds:      make(map[tableKey]*models.Build, len(file.Builds)),
		logger:      logger.Named("BuildLookup"),
	}
	seenClass := make(map[string]bool)
	for i, e := range file.Builds {
		if normalize(e.Class) == "" || normalize(e.Race) == "" || e.Build == nil {
			return nil, fmt.Errorf("build table entry %d: class, race and build are required", i)
		}
		k := keyOf(e.Class, e.Race)
		if _, dup := l.builds[k]; dup {
			return nil, fmt.Errorf("build table entry %d: duplicate %s/%s", i, e.Class, e.Race)
		}
		l.builds[k] = e.Build
		if !seenClass[k.class] {
			seenClass[k.class] = true
			l.classes = append(l.classes, e.Class)
		}
	}
	sort.Strings(l.classes)
	return l, nil
}

// Resolve returns a copy of the build for (class, race). When no exact entry
// exists the class's default-race entry is used and the fallback is logged.
// The second result is false when neither exists; callers treat that as "no
// pre-built sheet", not as an error.
func (l *Lookup) Resolve(class, race string) (*models.Build, bool) {
	if b, ok := l.builds[keyOf(class, race)]; ok {
		lookupsTotal.WithLabelValues("exact").Inc()
		return b.Clone(), true
	}
	if b, ok := l.builds[keyOf(class, l.defaultRace)]; ok {
		lookupsTotal.WithLabelValues("fallback").Inc()
		l.logger.Warn("Build lookup fell back to default race",
			zap.String("class", class),
			zap.String("race", race),
			zap.String("default_race", l.defaultRace))
		return b.Clone(), true
	}
	lookupsTotal.WithLabelValues("missing").Inc()
	l.logger.Info("No build available", zap.String("class", class), zap.String("race", race))
	return nil, false
}

// Classes lists the classes that have at least one entry, as authored.
func (l *Lookup) Classes() []string {
	out := make([]string, len(l.classes))
	copy(out, l.classes)
	return out
}

// DefaultRace is the race used for fallbacks, lower-cased.
func (l *Lookup) DefaultRace() string {
	return l.defaultRace
}
