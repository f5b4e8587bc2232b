// Package livekit mints access tokens for LiveKit rooms where a visitor talks
// to an art guide agent about an analyzed artwork.
package livekit

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured = errors.New("livekit credentials not configured")
	ErrRoomRequired  = errors.New("roomName is required")
	ErrInvalidToken  = errors.New("invalid livekit token")
)

// Default participant names when the caller leaves them empty.
const (
	DefaultParticipant = "Guest"
	DefaultAgent       = "AIAgent"
)

const maxRoomSlug = 50

// VideoGrant is the room permission block LiveKit reads from the "video" claim.
type VideoGrant struct {
	RoomJoin             bool   `json:"roomJoin,omitempty"`
	Room                 string `json:"room,omitempty"`
	CanPublish           *bool  `json:"canPublish,omitempty"`
	CanSubscribe         *bool  `json:"canSubscribe,omitempty"`
	CanPublishData       *bool  `json:"canPublishData,omitempty"`
	CanUpdateOwnMetadata *bool  `json:"canUpdateOwnMetadata,omitempty"`
}

// Claims is the LiveKit access token payload.
type Claims struct {
	jwt.RegisteredClaims
	Name     string      `json:"name,omitempty"`
	Metadata string      `json:"metadata,omitempty"`
	Video    *VideoGrant `json:"video,omitempty"`
}

// Issuer signs tokens with the API key pair.
type Issuer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
	now       func() time.Time
}

func NewIssuer(apiKey, apiSecret string, ttl time.Duration) *Issuer {
	return &Issuer{apiKey: apiKey, apiSecret: apiSecret, ttl: ttl, now: time.Now}
}

// Configured reports whether both credentials are present.
func (i *Issuer) Configured() bool {
	return i.apiKey != "" && i.apiSecret != ""
}

// ParticipantToken grants a visitor publish and subscribe rights in room.
func (i *Issuer) ParticipantToken(room, participant, metadata string) (string, error) {
	if participant == "" {
		participant = DefaultParticipant
	}
	return i.sign(room, participant, metadata, false)
}

// AgentToken grants the guide agent the participant rights plus metadata updates.
func (i *Issuer) AgentToken(room, agent string) (string, error) {
	if agent == "" {
		agent = DefaultAgent
	}
	return i.sign(room, agent, `{"type":"agent"}`, true)
}

func (i *Issuer) sign(room, identity, metadata string, agent bool) (string, error) {
	if !i.Configured() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(room) == "" {
		return "", ErrRoomRequired
	}

	yes := true
	grant := &VideoGrant{
		RoomJoin:       true,
		Room:           room,
		CanPublish:     &yes,
		CanSubscribe:   &yes,
		CanPublishData: &yes,
	}
	if agent {
		grant.CanUpdateOwnMetadata = &yes
	}

	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Name:     identity,
		Metadata: metadata,
		Video:    grant,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(i.apiSecret))
}

// Parse verifies a token signed by this issuer and returns its claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(i.apiSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(i.apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]`)

// RoomName builds a unique room name for an artwork session.
func RoomName(title string, at time.Time) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	if len(slug) > maxRoomSlug {
		slug = slug[:maxRoomSlug]
	}
	return fmt.Sprintf("artwork-%s-%d", slug, at.UnixMilli())
}

// Artwork is the context handed to the guide agent through room metadata.
type Artwork struct {
	ImageURI          string `json:"imageUri"`
	Title             string `json:"title"`
	Artist            string `json:"artist,omitempty"`
	Type              string `json:"type,omitempty"`
	Description       string `json:"description,omitempty"`
	HistoricalContext string `json:"historicalContext,omitempty"`
	Emotions          string `json:"emotions,omitempty"`
}

const guideInstructions = "You are an expert art historian and guide. Answer questions about this artwork based on the provided information. Be engaging, informative, and conversational."

// AgentMetadata encodes artwork as the metadata string the agent expects.
func AgentMetadata(a Artwork) (string, error) {
	b, err := json.Marshal(struct {
		Type         string  `json:"type"`
		Data         Artwork `json:"data"`
		Instructions string  `json:"instructions"`
	}{"artwork_analysis", a, guideInstructions})
	if err != nil {
		return "", fmt.Errorf("encoding agent metadata: %w", err)
	}
	return string(b), nil
}
