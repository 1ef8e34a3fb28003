package config

import (
	"strings"
	"time"

	"github.com/lintang-b-s/bikestats/pkg/location"
	"github.com/lintang-b-s/bikestats/pkg/util"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "BIKESTATS"

type ServerConfig struct {
	Port            int
	Timeout         time.Duration
	UseRateLimit    bool
	RateLimitRPS    float64
	RateLimitBurst  int
	CourseCacheSize int
}

type HistoryConfig struct {
	Path     string
	Compress bool
}

type Config struct {
	Live         location.LiveConfig
	Course       location.CourseConfig
	WindowMeters int
	History      HistoryConfig
	Server       ServerConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("live.accuracy_threshold", location.LIVE_ACCURACY_THRESHOLD)
	v.SetDefault("live.noise_gate_factor", location.LIVE_NOISE_GATE_FACTOR)
	v.SetDefault("live.min_seconds_eval", location.MIN_SECONDS_EVAL)
	v.SetDefault("live.history_capacity", location.MAX_LOCATIONS)

	v.SetDefault("course.accuracy_threshold", location.COURSE_ACCURACY_THRESHOLD)
	v.SetDefault("course.matching_threshold", location.MATCHING_THRESHOLD)
	v.SetDefault("course.min_seconds_eval", location.MIN_SECONDS_EVAL)

	v.SetDefault("stats.window_meters", 300)

	v.SetDefault("history.path", "./data/locations.txt")
	v.SetDefault("history.compress", false)

	v.SetDefault("server.api_port", 6060)
	v.SetDefault("server.api_timeout", "30s")
	v.SetDefault("server.rate_limit", false)
	v.SetDefault("server.rate_limit_rps", 50)
	v.SetDefault("server.rate_limit_burst", 100)
	v.SetDefault("server.course_cache_size", 64)
}

// Load. defaults, then config.yaml from paths (./data/ and . when empty), then BIKESTATS_* environment variables.
// e.g. BIKESTATS_LIVE_ACCURACY_THRESHOLD=50 overrides live.accuracy_threshold
func Load(paths ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := util.ReadConfig(v, paths...); err != nil {
		return Config{}, util.WrapErrorf(err, util.ErrLoad, "read config")
	}

	cfg := Config{
		Live: location.LiveConfig{
			AccuracyThreshold: v.GetFloat64("live.accuracy_threshold"),
			NoiseGateFactor:   v.GetFloat64("live.noise_gate_factor"),
			MinSecondsEval:    v.GetFloat64("live.min_seconds_eval"),
			HistoryCapacity:   v.GetInt("live.history_capacity"),
		},
		Course: location.CourseConfig{
			AccuracyThreshold: v.GetFloat64("course.accuracy_threshold"),
			MatchingThreshold: v.GetFloat64("course.matching_threshold"),
			MinSecondsEval:    v.GetFloat64("course.min_seconds_eval"),
		},
		WindowMeters: v.GetInt("stats.window_meters"),
		History: HistoryConfig{
			Path:     v.GetString("history.path"),
			Compress: v.GetBool("history.compress"),
		},
		Server: ServerConfig{
			Port:            v.GetInt("server.api_port"),
			Timeout:         v.GetDuration("server.api_timeout"),
			UseRateLimit:    v.GetBool("server.rate_limit"),
			RateLimitRPS:    v.GetFloat64("server.rate_limit_rps"),
			RateLimitBurst:  v.GetInt("server.rate_limit_burst"),
			CourseCacheSize: v.GetInt("server.course_cache_size"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Live.AccuracyThreshold <= 0 || c.Course.AccuracyThreshold <= 0:
		return util.WrapErrorf(nil, util.ErrBadParamInput, "accuracy thresholds must be positive")
	case c.Course.MatchingThreshold <= 0:
		return util.WrapErrorf(nil, util.ErrBadParamInput, "course.matching_threshold must be positive")
	case c.Live.HistoryCapacity <= 0:
		return util.WrapErrorf(nil, util.ErrBadParamInput, "live.history_capacity must be positive")
	case c.WindowMeters < 0:
		return util.WrapErrorf(nil, util.ErrBadParamInput, "stats.window_meters must not be negative")
	case c.Server.CourseCacheSize <= 0:
		return util.WrapErrorf(nil, util.ErrBadParamInput, "server.course_cache_size must be positive")
	}
	return nil
}
