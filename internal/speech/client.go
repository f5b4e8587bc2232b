// Package speech turns text into narration audio through an ElevenLabs-style
// text-to-speech API.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Sentinel errors for speech provider failures.
var (
	ErrSpeechUnreachable = errors.New("speech provider unreachable")
	ErrSpeechTimeout     = errors.New("speech provider timeout")
	ErrSpeechRejected    = errors.New("speech provider rejected request")
	ErrUnknownVoice      = errors.New("unknown voice")
	ErrNotConfigured     = errors.New("speech provider API key not configured")
	ErrEmptyText         = errors.New("text is required")
)

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 512

// Voices maps the premade voice names to provider voice IDs.
var Voices = map[string]string{
	"Rachel":    "21m00Tcm4TlvDq8ikWAM",
	"Drew":      "29vD33N1CtxCmqQRPOHJ",
	"Clyde":     "2EiwWnXFnvU5JabPnv8n",
	"Paul":      "5Q0t7uMcjvnagumLfvZi",
	"Domi":      "AZnzlk1XvdvUeBnXmlld",
	"Dave":      "CYw3kZ02Hs0563khs1Fj",
	"Fin":       "D38z5RcWu1voky8WS1ja",
	"Bella":     "EXAVITQu4vr4xnSDxMaL",
	"Antoni":    "ErXwobaYiN019PkySvjV",
	"Thomas":    "GBv7mTt0atIp3BR8iCZE",
	"Charlie":   "IKne3meq5aSn9XLyUdCD",
	"Emily":     "LcfcDJNUP1GQjkzn1xUU",
	"Elli":      "MF3mGyEYCl7XYWbV9V6O",
	"Callum":    "N2lVS1w4EtoT3dr4eOWO",
	"Patrick":   "ODq5zmih8GrVes37Dizd",
	"Harry":     "SOYHLrjzK2X1ezoPC6cr",
	"Liam":      "TX3LPaxmHKxFdv7VOQHJ",
	"Dorothy":   "ThT5KcBeYPX3keUQqHPh",
	"Josh":      "TxGEqnHWrfWFTfGW9XjX",
	"Arnold":    "VR6AewLTigWG4xSOukaG",
	"Charlotte": "XB0fDUnXU5powFXDhCwa",
	"Alice":     "Xb7hH8MSUJpSbSDYk0k2",
	"Matilda":   "XrExE9yKIg1WjnnlVkGX",
	"James":     "ZQe5CZNOzWyzPSCn5a3c",
	"Joseph":    "Zlb1dXrM653N07WRdFW3",
	"Jeremy":    "bVMeCyTHy58xNoL34h3p",
	"Michael":   "flq6f7yk4E4fJM5XTYuZ",
	"Ethan":     "g5CIjZEefAph4nQFvHAz",
	"Chris":     "iP95p4xoKVk53GoZ742B",
	"Gigi":      "jBpfuIE2acCO8z3wKNLl",
	"Freya":     "jsCqWAovK2LkecY7zXl4",
	"Brian":     "nPczCjzI2devNBz1zQrb",
	"Grace":     "oWAxZDx7w5VEj9dCyTzz",
	"Daniel":    "onwK4e9ZLuTAKqWW03F9",
	"Lily":      "pFZP5JQG7iQjIQuC4Bku",
	"Serena":    "pMsXgVXv3BLzUgSXRplE",
	"Adam":      "pNInz6obpgDQGcFmaJgB",
	"Nicole":    "piTKgcLEGmPE4e6mEKli",
	"Bill":      "pqHfZKP75CvOlQylNhV4",
	"Jessie":    "t0jbNlBVZ17f02VDIeMI",
	"Sam":       "yoZ06aMxZJJ28mfd3POQ",
	"Glinda":    "z9fAnlkpzviPz146aGWa",
	"Giovanni":  "zcAOhNBS3c14rBihAFp1",
	"Mimi":      "zrHiDhphv9ZnVXBqCLjz",
}

// VoiceNames returns the known voice names, sorted.
func VoiceNames() []string {
	names := make([]string, 0, len(Voices))
	for n := range Voices {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Options tune a single synthesis. Nil pointers take the provider defaults.
type Options struct {
	Voice           string
	Model           string
	Stability       *float64
	SimilarityBoost *float64
	Style           *float64
	SpeakerBoost    *bool
}

// VoiceSettings is the provider's voice_settings object.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings are used for every unset option.
var DefaultVoiceSettings = VoiceSettings{
	Stability:       0.5,
	SimilarityBoost: 0.75,
	Style:           0.0,
	UseSpeakerBoost: true,
}

func (o Options) settings() VoiceSettings {
	s := DefaultVoiceSettings
	if o.Stability != nil {
		s.Stability = *o.Stability
	}
	if o.SimilarityBoost != nil {
		s.SimilarityBoost = *o.SimilarityBoost
	}
	if o.Style != nil {
		s.Style = *o.Style
	}
	if o.SpeakerBoost != nil {
		s.UseSpeakerBoost = *o.SpeakerBoost
	}
	return s
}

// Quota is the account's character usage.
type Quota struct {
	CharacterCount int `json:"character_count"`
	CharacterLimit int `json:"character_limit"`
}

// Remaining returns the characters left, never negative.
func (q Quota) Remaining() int {
	if q.CharacterCount >= q.CharacterLimit {
		return 0
	}
	return q.CharacterLimit - q.CharacterCount
}

// Client talks to the speech provider.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	defaultVoice string
	http         *http.Client
}

// NewClient creates a speech client. model and voice are the defaults for
// requests that leave them empty.
func NewClient(baseURL, apiKey, model, voice string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		model:        model,
		defaultVoice: voice,
		http:         &http.Client{Timeout: timeout},
	}
}

// ResolveVoice maps a voice name to its ID. Empty names use the default voice.
func (c *Client) ResolveVoice(name string) (string, string, error) {
	if name == "" {
		name = c.defaultVoice
	}
	if id, ok := Voices[name]; ok {
		return name, id, nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnknownVoice, name)
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Synthesize returns MPEG audio for text.
func (c *Client) Synthesize(ctx context.Context, text string, opts Options) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	_, voiceID, err := c.ResolveVoice(opts.Voice)
	if err != nil {
		return nil, err
	}
	model := opts.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(synthesisRequest{Text: text, ModelID: model, VoiceSettings: opts.settings()})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech/"+voiceID, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSpeechRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyError(err)
	}
	return audio, nil
}

// Quota fetches the subscription's character usage.
func (c *Client) Quota(ctx context.Context) (Quota, error) {
	if c.apiKey == "" {
		return Quota{}, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return Quota{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Quota{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Quota{}, fmt.Errorf("%w: status %d", ErrSpeechRejected, resp.StatusCode)
	}

	var out struct {
		Subscription Quota `json:"subscription"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Quota{}, fmt.Errorf("decoding user response: %w", err)
	}
	return out.Subscription, nil
}

func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrSpeechTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrSpeechTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrSpeechUnreachable, err)
}
