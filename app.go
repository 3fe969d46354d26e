package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"livenotes/internal/bootstrap"
	"livenotes/internal/config"
	"livenotes/internal/domain"
	"livenotes/internal/notify"
	"livenotes/internal/usecase"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	services   bootstrap.Services
	controller *usecase.LiveController
	cfg        config.Config
	bootErr    error

	emit func(ctx context.Context, name string, data ...interface{})
}

func NewApp() *App {
	return &App{emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.RecordingError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.cfg = services.Config
	a.controller = services.Controller

	if hub := services.Hub; hub != nil {
		go func() {
			if err := hub.Serve(ctx, services.Config.Notify.Addr); err != nil {
				services.Logger.Errorw("event hub stopped", "addr", services.Config.Notify.Addr, "error", err)
			}
		}()
	}
}

func (a *App) shutdown(context.Context) {
	a.services.Close()
}

// StartLiveRecording starts a live session. recorder is auto, ffmpeg or
// arecord; zero segmentSeconds uses the configured length.
func (a *App) StartLiveRecording(recorder string, segmentSeconds int) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	dir, err := a.controller.Start(a.ctx, usecase.StartOptions{
		Recorder:       recorder,
		SegmentSeconds: segmentSeconds,
	})
	if err != nil {
		if !errors.Is(err, usecase.ErrAlreadyActive) {
			a.RecordingError(domain.ErrorCodeFor(err), err.Error())
		}
		return "", err
	}
	return dir, nil
}

// StopLiveRecording stops the live session and returns the joined transcript.
func (a *App) StopLiveRecording() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.controller.Stop()
}

func (a *App) GetRecorderMode() string {
	if a.controller == nil {
		return string(domain.RecorderModeInactive)
	}
	return string(a.controller.Mode())
}

func (a *App) GetLiveTranscripts() []string {
	if a.controller == nil {
		return []string{}
	}
	return a.controller.Transcripts()
}

func (a *App) GetLiveChunks() []domain.ChunkTranscript {
	if a.controller == nil {
		return []domain.ChunkTranscript{}
	}
	return a.controller.Chunks()
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		return domain.Status{Mode: domain.RecorderModeInactive}
	}
	return a.controller.Status()
}

// CleanupLiveSession removes leftover segment files.
func (a *App) CleanupLiveSession() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.Cleanup()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"recorder":         a.cfg.Live.Recorder,
		"segmentSeconds":   fmt.Sprint(a.cfg.Live.SegmentSeconds),
		"sessionDir":       a.cfg.Live.SessionDir,
		"rulesFile":        a.cfg.Rules.Path,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"notifyAddr":       a.cfg.Notify.Addr,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// RecorderModeSelected tells the frontend which recorder a session uses.
func (a *App) RecorderModeSelected(session domain.SessionInfo) {
	a.send(notify.EventRecorderMode, map[string]string{
		"mode":     string(session.Backend),
		"recorder": recorderName(session.Backend),
		"session":  session.ID,
		"dir":      session.BaseDir,
	})
}

func (a *App) ChunkTranscribed(chunk domain.ChunkTranscript) {
	a.send(notify.EventTranscriptChunk, chunk)
}

// RecordingError emits backend errors to the UI.
func (a *App) RecordingError(code domain.ErrorCode, detail string) {
	a.send(notify.EventRecordingError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func (a *App) SessionEnded(session domain.SessionInfo, reason domain.SessionEndReason) {
	a.send(notify.EventSessionEnded, notify.SessionEndedPayload{Session: session, Reason: reason})
}

func (a *App) send(name string, data interface{}) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, name, data)
}

func recorderName(backend domain.Backend) string {
	if backend == domain.BackendStreaming {
		return string(domain.RecorderFFMPEG)
	}
	return string(domain.RecorderARecord)
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeSessionDir:
		return "Session directory unavailable"
	case domain.ErrorCodeCaptureFailed:
		return "Audio capture failed"
	case domain.ErrorCodeSegmentTimeout:
		return "Audio segment skipped"
	case domain.ErrorCodeTranscriptionInput:
		return "Audio chunk unusable"
	case domain.ErrorCodeEngineUnavailable:
		return "Whisper not found"
	case domain.ErrorCodeModelUnavailable:
		return "Whisper model not found"
	case domain.ErrorCodeTranscriptionFailed:
		return "Transcription error"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
