// Package server exposes the playback boundary over HTTP: the upstream chat
// backend POSTs raw TTS audio bytes and the bridge queues them for playback
// with live lip sync. Route handling here is deliberately thin; everything
// interesting happens in the player engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/vmcbridge/internal/audio"
	"github.com/normanking/vmcbridge/internal/config"
	"github.com/normanking/vmcbridge/internal/player"
)

// maxBodyBytes caps an uploaded audio clip. A minute of 48 kHz stereo WAV is
// around 11 MB; 64 MB leaves generous headroom.
const maxBodyBytes = 64 << 20

// Server is the HTTP boundary in front of the playback engine.
type Server struct {
	engine *player.Engine
	cfg    config.ServerConfig
	logger zerolog.Logger
	http   *http.Server
}

// New creates the boundary server.
func New(engine *player.Engine, cfg config.ServerConfig, logger zerolog.Logger) *Server {
	s := &Server{
		engine: engine,
		cfg:    cfg,
		logger: logger.With().Str("component", "server").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/play-bytes", s.handlePlayBytes)
	mux.HandleFunc("/clear", s.handleClear)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/test", s.handleTest)

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("API server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// handlePlayBytes accepts raw audio bytes, decodes them, and queues playback.
func (s *Server) handlePlayBytes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"success": false, "error": "POST required"})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "no audio data"})
		return
	}

	buf, err := audio.Decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(data)).Msg("Rejected undecodable audio")
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}

	depth := s.engine.Enqueue(buf)
	s.logger.Info().Int("bytes", len(data)).Int("position", depth).Msg("Audio queued for playback")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "queued": true, "position": depth})
}

// handleClear empties the pending queue without touching the current item.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"success": false, "error": "POST required"})
		return
	}
	cleared := s.engine.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "cleared": cleared})
}

// handleStatus reports device and lip sync state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "running",
		"device":          st.Device,
		"sample_rate":     st.SampleRate,
		"lipsync_port":    st.LipSyncPort,
		"lipsync_enabled": st.LipSyncEnabled,
		"queue_depth":     st.QueueDepth,
	})
}

// handleTest queues the built-in test tone.
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	s.engine.PlayTone()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "test tone queued"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
