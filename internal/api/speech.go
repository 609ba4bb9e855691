package api

import (
	"fmt"
	"net/http"

	"github.com/ashureev/paradox/internal/audio"
	"github.com/ashureev/paradox/internal/speech"
	"github.com/ashureev/paradox/internal/studio"
)

type speakRequest struct {
	Text   string        `json:"text"`
	Rate   float64       `json:"rate"`
	Pitch  float64       `json:"pitch"`
	Gender speech.Gender `json:"gender"`
}

// Speak synthesizes text, or the current response when text is empty,
// replacing any utterance already playing.
func (h *Handler) Speak(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req speakRequest
	if !h.decode(w, r, &req) {
		return
	}
	utterance, err := c.Speak(r.Context(), req.Text, speech.Options{
		Rate:   req.Rate,
		Pitch:  req.Pitch,
		Gender: req.Gender,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"utterance": newUtteranceView(utterance, true)})
}

// StopSpeaking cancels the active utterance.
func (h *Handler) StopSpeaking(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.StopSpeaking()
	JSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// Voices returns the configured voice table.
func (h *Handler) Voices(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"available": speech.PrebuiltVoices}
	if h.voices != nil {
		resp["voices"] = h.voices.Entries()
	}
	JSON(w, http.StatusOK, resp)
}

func (h *Handler) listener(w http.ResponseWriter, r *http.Request) (*speech.Listener, bool) {
	c, ok := h.controller(w, r)
	if !ok {
		return nil, false
	}
	l := c.Listener()
	if l == nil {
		writeError(w, r, fmt.Errorf("%w: speech input", studio.ErrUnavailable))
		return nil, false
	}
	return l, true
}

// ListenStart begins a dictation.
func (h *Handler) ListenStart(w http.ResponseWriter, r *http.Request) {
	l, ok := h.listener(w, r)
	if !ok {
		return
	}
	if err := l.Start(); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"state": string(l.State())})
}

type listenChunkRequest struct {
	Data       string `json:"data"`
	SampleRate int    `json:"sample_rate"`
}

// ListenChunk appends base64 16-bit mono PCM to the dictation, resampling to
// 16 kHz when needed. accepted counts the 16 kHz bytes buffered so far by
// this chunk; the resampler may hold some back until the dictation stops.
func (h *Handler) ListenChunk(w http.ResponseWriter, r *http.Request) {
	l, ok := h.listener(w, r)
	if !ok {
		return
	}
	var req listenChunkRequest
	if !h.decode(w, r, &req) {
		return
	}

	pcm := audio.Decode(req.Data)
	before := l.Buffered()
	if err := l.FeedAt(pcm, req.SampleRate); err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"accepted":  l.Buffered() - before,
		"truncated": l.Truncated(),
	})
}

type listenStopRequest struct {
	Current string `json:"current"`
}

// ListenStop transcribes the dictation and appends it to current.
func (h *Handler) ListenStop(w http.ResponseWriter, r *http.Request) {
	l, ok := h.listener(w, r)
	if !ok {
		return
	}
	var req listenStopRequest
	if !h.decode(w, r, &req) {
		return
	}
	text, err := l.Finish(r.Context(), req.Current)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"text":      text,
		"truncated": l.Truncated(),
	})
}

// ListenCancel abandons the dictation.
func (h *Handler) ListenCancel(w http.ResponseWriter, r *http.Request) {
	l, ok := h.listener(w, r)
	if !ok {
		return
	}
	l.Cancel()
	JSON(w, http.StatusOK, map[string]string{"state": string(l.State())})
}
