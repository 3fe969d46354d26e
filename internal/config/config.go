package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix       = "LIVENOTES"
	minSettleWindow = 1500 * time.Millisecond
)

var lookPath = exec.LookPath

// Config stores runtime configuration.
type Config struct {
	Audio   AudioConfig   `mapstructure:"audio"`
	Live    LiveConfig    `mapstructure:"live"`
	Whisper WhisperConfig `mapstructure:"whisper"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Journal JournalConfig `mapstructure:"journal"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Log     LogConfig     `mapstructure:"log"`
}

type AudioConfig struct {
	ARecordCommand string `mapstructure:"arecord_command"`
	FFMPEGCommand  string `mapstructure:"ffmpeg_command"`
	InputFormat    string `mapstructure:"input_format"`
	InputDevice    string `mapstructure:"input_device"`
	SampleRate     int    `mapstructure:"sample_rate"`
	Channels       int    `mapstructure:"channels"`
}

type LiveConfig struct {
	SessionDir      string        `mapstructure:"session_dir"`
	Recorder        string        `mapstructure:"recorder"`
	SegmentSeconds  int           `mapstructure:"segment_seconds"`
	Overlap         time.Duration `mapstructure:"overlap"`
	StreamingSlack  time.Duration `mapstructure:"streaming_slack"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MinSegmentBytes int64         `mapstructure:"min_segment_bytes"`
	SettleWindow    time.Duration `mapstructure:"settle_window"`
}

type WhisperConfig struct {
	EngineCandidates []string `mapstructure:"engine_candidates"`
	ModelCandidates  []string `mapstructure:"model_candidates"`
	MaxThreads       int      `mapstructure:"max_threads"`
	MinInputBytes    int64    `mapstructure:"min_input_bytes"`
}

type RulesConfig struct {
	Path      string `mapstructure:"path"`
	LoopLimit int    `mapstructure:"loop_limit"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type NotifyConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

// Load resolves configuration from LIVENOTES_* environment variables, an
// optional YAML file and defaults, in that order of precedence.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = filepath.Join(home, ".cache")
	}
	dataDir := filepath.Join(home, ".local", "share", "livenotes")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, home, cacheDir, dataDir, executableDir())

	v.SetConfigType("yaml")
	if explicit := strings.TrimSpace(os.Getenv(envPrefix + "_CONFIG")); explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(home, ".config", "livenotes"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	normalize(&cfg)
	return cfg, nil
}

func setDefaults(v *viper.Viper, home, cacheDir, dataDir, exeDir string) {
	v.SetDefault("audio.arecord_command", "arecord")
	v.SetDefault("audio.ffmpeg_command", "ffmpeg")
	v.SetDefault("audio.input_format", "alsa")
	v.SetDefault("audio.input_device", "default")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.channels", 1)

	v.SetDefault("live.session_dir", filepath.Join(cacheDir, "livenotes", "live-session"))
	v.SetDefault("live.recorder", "auto")
	v.SetDefault("live.segment_seconds", 10)
	v.SetDefault("live.overlap", 3*time.Second)
	v.SetDefault("live.streaming_slack", 10*time.Second)
	v.SetDefault("live.poll_interval", 200*time.Millisecond)
	v.SetDefault("live.min_segment_bytes", 1000)
	v.SetDefault("live.settle_window", minSettleWindow)

	v.SetDefault("whisper.engine_candidates", engineCandidates(dataDir, exeDir))
	v.SetDefault("whisper.model_candidates", modelCandidates(dataDir, exeDir))
	v.SetDefault("whisper.max_threads", 4)
	v.SetDefault("whisper.min_input_bytes", 100)

	v.SetDefault("rules.path", firstExisting(
		filepath.Join(home, ".config", "livenotes", "substitutions.rules"),
		filepath.Join(dataDir, "substitutions.rules"),
	))
	v.SetDefault("rules.loop_limit", 30)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", filepath.Join(dataDir, "journal.sqlite"))
	v.SetDefault("notify.addr", "")
	v.SetDefault("log.debug", false)
}

func normalize(cfg *Config) {
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Live.SegmentSeconds <= 0 {
		cfg.Live.SegmentSeconds = 10
	}
	if cfg.Live.Overlap < 0 {
		cfg.Live.Overlap = 3 * time.Second
	}
	if cfg.Live.StreamingSlack <= 0 {
		cfg.Live.StreamingSlack = 10 * time.Second
	}
	if cfg.Live.PollInterval <= 0 {
		cfg.Live.PollInterval = 200 * time.Millisecond
	}
	if cfg.Live.MinSegmentBytes <= 0 {
		cfg.Live.MinSegmentBytes = 1000
	}
	// ffmpeg flushes segment files about once a second.
	if cfg.Live.SettleWindow < minSettleWindow {
		cfg.Live.SettleWindow = minSettleWindow
	}
	if cfg.Rules.LoopLimit <= 0 {
		cfg.Rules.LoopLimit = 30
	}
	if cfg.Whisper.MaxThreads <= 0 {
		cfg.Whisper.MaxThreads = 4
	}
	if cfg.Whisper.MinInputBytes <= 0 {
		cfg.Whisper.MinInputBytes = 100
	}
	cfg.Live.Recorder = strings.ToLower(strings.TrimSpace(cfg.Live.Recorder))
	cfg.Whisper.EngineCandidates = compact(cfg.Whisper.EngineCandidates)
	cfg.Whisper.ModelCandidates = compact(cfg.Whisper.ModelCandidates)
}

func engineCandidates(dataDir, exeDir string) []string {
	candidates := []string{
		filepath.Join(exeDir, "binaries", "whisper-cli"),
		filepath.Join(exeDir, "whisper-cli"),
		filepath.Join(dataDir, "bin", "whisper-cli"),
	}
	for _, name := range []string{"whisper-cli", "whisper-cpp"} {
		if path, err := lookPath(name); err == nil {
			candidates = append(candidates, path)
		}
	}
	return candidates
}

// Smaller models first: live chunks favour latency over accuracy.
func modelCandidates(dataDir, exeDir string) []string {
	var candidates []string
	for _, model := range []string{"ggml-tiny.en.bin", "ggml-base.en.bin"} {
		candidates = append(candidates,
			filepath.Join(exeDir, "models", model),
			filepath.Join(dataDir, "models", model),
		)
	}
	return candidates
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
