package profiling

import (
	"fmt"
	"strings"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
	"go.uber.org/zap"
)

const defaultUploadInterval = 15 * time.Second

var defaultProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileGoroutines,
}

var profileTypeMap = map[string][]pyroscope.ProfileType{
	"cpu":           {pyroscope.ProfileCPU},
	"alloc_space":   {pyroscope.ProfileAllocSpace},
	"alloc_objects": {pyroscope.ProfileAllocObjects},
	"inuse":         {pyroscope.ProfileInuseSpace, pyroscope.ProfileInuseObjects},
	"goroutines":    {pyroscope.ProfileGoroutines},
	"mutex":         {pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration},
	"block":         {pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration},
}

// Config controls continuous profiling
type Config struct {
	Enabled        bool
	Endpoint       string
	AppName        string
	SampleTypes    string
	UploadInterval time.Duration
}

// Labels identify this process in the profiling backend
type Labels struct {
	ServiceName string
	Namespace   string
	Version     string
	InstanceID  string
	Environment string
}

// Start begins pushing profiles to a Pyroscope-compatible endpoint and
// returns the function that stops it.
func Start(cfg Config, labels Labels) (func(), error) {
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return func() {}, nil
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("profiling endpoint is required when profiling is enabled")
	}
	interval := cfg.UploadInterval
	if interval <= 0 {
		interval = defaultUploadInterval
	}

	profileTypes, err := parseProfileTypes(cfg.SampleTypes)
	if err != nil {
		return nil, err
	}

	applicationName := applicationName(cfg.AppName, labels)
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: applicationName,
		ServerAddress:   endpoint,
		UploadRate:      interval,
		ProfileTypes:    profileTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start profiler: %w", err)
	}

	logger.Info("Continuous profiling initialized",
		zap.String("application_name", applicationName),
		zap.String("endpoint", endpoint),
		zap.Duration("upload_interval", interval),
	)

	return func() {
		if stopErr := profiler.Stop(); stopErr != nil {
			logger.Error("Failed to stop profiler", zap.Error(stopErr))
		}
	}, nil
}

func parseProfileTypes(value string) ([]pyroscope.ProfileType, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultProfileTypes, nil
	}

	var types []pyroscope.ProfileType
	seen := make(map[pyroscope.ProfileType]bool)

	for _, raw := range strings.Split(value, ",") {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		mapped, ok := profileTypeMap[key]
		if !ok {
			return nil, fmt.Errorf("unsupported O11Y_PROFILING_SAMPLE_TYPES value: %q", key)
		}
		for _, t := range mapped {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}

	if len(types) == 0 {
		return defaultProfileTypes, nil
	}
	return types, nil
}

// applicationName renders the Pyroscope app name with its label set,
// e.g. pnp-remodeling-api{service_name=...,environment=...}
func applicationName(base string, l Labels) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "pnp-remodeling-api"
	}

	pairs := [][2]string{
		{"service_name", l.ServiceName},
		{"namespace", l.Namespace},
		{"environment", l.Environment},
		{"service_version", l.Version},
		{"instance", l.InstanceID},
	}
	labels := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p[1] != "" {
			labels = append(labels, p[0]+"="+p[1])
		}
	}

	return base + "{" + strings.Join(labels, ",") + "}"
}
