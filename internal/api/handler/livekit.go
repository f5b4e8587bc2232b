package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kiranshivaraju/artscan/internal/api/response"
	"github.com/kiranshivaraju/artscan/internal/livekit"
)

// LiveKit serves voice-agent room tokens.
type LiveKit struct {
	issuer *livekit.Issuer
	url    string
}

func NewLiveKit(issuer *livekit.Issuer, url string) *LiveKit {
	return &LiveKit{issuer: issuer, url: url}
}

// Token handles POST /api/v1/livekit/token. When metadata is empty and an
// artwork is given, the artwork is encoded as agent metadata.
func (h *LiveKit) Token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomName        string           `json:"roomName"`
		ParticipantName string           `json:"participantName"`
		Metadata        string           `json:"metadata"`
		Artwork         *livekit.Artwork `json:"artwork"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body", nil)
		return
	}

	metadata := req.Metadata
	if metadata == "" && req.Artwork != nil {
		md, err := livekit.AgentMetadata(*req.Artwork)
		if err != nil {
			response.BadRequest(w, err.Error(), nil)
			return
		}
		metadata = md
	}
	if req.ParticipantName == "" {
		req.ParticipantName = livekit.DefaultParticipant
	}

	token, err := h.issuer.ParticipantToken(req.RoomName, req.ParticipantName, metadata)
	if err != nil {
		writeLiveKitError(w, err)
		return
	}
	response.JSON(w, map[string]string{
		"token":           token,
		"url":             h.url,
		"roomName":        req.RoomName,
		"participantName": req.ParticipantName,
	})
}

// AgentToken handles POST /api/v1/livekit/agent-token.
func (h *LiveKit) AgentToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomName  string `json:"roomName"`
		AgentName string `json:"agentName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body", nil)
		return
	}
	if req.AgentName == "" {
		req.AgentName = livekit.DefaultAgent
	}

	token, err := h.issuer.AgentToken(req.RoomName, req.AgentName)
	if err != nil {
		writeLiveKitError(w, err)
		return
	}
	response.JSON(w, map[string]string{
		"token":     token,
		"url":       h.url,
		"roomName":  req.RoomName,
		"agentName": req.AgentName,
	})
}

// RoomName handles POST /api/v1/livekit/rooms, naming a room for an artwork.
func (h *LiveKit) RoomName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		response.BadRequest(w, "title is required", nil)
		return
	}
	response.Created(w, map[string]string{"roomName": livekit.RoomName(req.Title, time.Now())})
}

func writeLiveKitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, livekit.ErrRoomRequired):
		response.BadRequest(w, err.Error(), nil)
	case errors.Is(err, livekit.ErrNotConfigured):
		response.Error(w, http.StatusServiceUnavailable, "LIVEKIT_NOT_CONFIGURED",
			"LiveKit is not configured", nil)
	default:
		response.Internal(w, "Failed to generate token")
	}
}
