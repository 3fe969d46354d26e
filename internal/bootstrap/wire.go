package bootstrap

import (
	"livenotes/internal/audio"
	"livenotes/internal/config"
	"livenotes/internal/journal"
	"livenotes/internal/logging"
	"livenotes/internal/notify"
	"livenotes/internal/ports"
	"livenotes/internal/rules"
	"livenotes/internal/transcribe"
	"livenotes/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.LiveController
	Config     config.Config
	Logger     *logging.Logger
	// Journal is nil when journaling is disabled.
	Journal *journal.Store
	// Hub is nil unless notify.addr is set; the caller serves it.
	Hub *notify.Hub
}

// Build wires all backend dependencies for the current runtime. eventSink
// receives notifications alongside the log, journal and hub sinks.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	logger := logging.New(cfg.Log.Debug)

	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.LoopLimit)
	if err != nil {
		return Services{}, err
	}

	sinks := notify.Fanout{notify.NewLogSink(logger)}
	if eventSink != nil {
		sinks = append(sinks, eventSink)
	}

	var store *journal.Store
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			return Services{}, err
		}
		sinks = append(sinks, store)
	}

	var hub *notify.Hub
	if cfg.Notify.Addr != "" {
		hub = notify.NewHub(logger)
		sinks = append(sinks, hub)
	}

	audioCfg := ports.AudioConfig{
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
		InputFormat: cfg.Audio.InputFormat,
		InputDevice: cfg.Audio.InputDevice,
	}

	controller := usecase.NewLiveController(
		audio.NewARecordCapture(cfg.Audio.ARecordCommand),
		audio.NewFFMPEGSegmenter(cfg.Audio.FFMPEGCommand),
		audio.PathLocator{},
		transcribe.NewWhisperCLI(transcribe.Config{
			EngineCandidates: cfg.Whisper.EngineCandidates,
			ModelCandidates:  cfg.Whisper.ModelCandidates,
			MaxThreads:       cfg.Whisper.MaxThreads,
			MinInputBytes:    cfg.Whisper.MinInputBytes,
		}),
		rulesEngine,
		audio.WAVInspector{},
		sinks,
		logger,
		usecase.Config{
			Audio:           audioCfg,
			SessionDir:      cfg.Live.SessionDir,
			Recorder:        cfg.Live.Recorder,
			StreamingTool:   cfg.Audio.FFMPEGCommand,
			SegmentSeconds:  cfg.Live.SegmentSeconds,
			Overlap:         cfg.Live.Overlap,
			StreamingSlack:  cfg.Live.StreamingSlack,
			PollInterval:    cfg.Live.PollInterval,
			MinSegmentBytes: cfg.Live.MinSegmentBytes,
			SettleWindow:    cfg.Live.SettleWindow,
		},
	)

	return Services{
		Controller: controller,
		Config:     cfg,
		Logger:     logger,
		Journal:    store,
		Hub:        hub,
	}, nil
}

// Close stops any live session and releases the journal and hub.
func (s Services) Close() {
	if s.Controller != nil {
		s.Controller.Close()
	}
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.Journal != nil {
		if err := s.Journal.Close(); err != nil && s.Logger != nil {
			s.Logger.Warnw("failed to close journal", "error", err)
		}
	}
	if s.Logger != nil {
		_ = s.Logger.Sync()
	}
}
