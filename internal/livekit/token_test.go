package livekit_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kiranshivaraju/artscan/internal/livekit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantToken(t *testing.T) {
	iss := livekit.NewIssuer("APIkey", "secret-secret-secret", time.Hour)

	tok, err := iss.ParticipantToken("artwork-room-1", "", `{"k":"v"}`)
	require.NoError(t, err)

	claims, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "APIkey", claims.Issuer)
	assert.Equal(t, livekit.DefaultParticipant, claims.Subject)
	assert.Equal(t, livekit.DefaultParticipant, claims.Name)
	assert.Equal(t, `{"k":"v"}`, claims.Metadata)

	require.NotNil(t, claims.Video)
	assert.True(t, claims.Video.RoomJoin)
	assert.Equal(t, "artwork-room-1", claims.Video.Room)
	assert.True(t, *claims.Video.CanPublish)
	assert.True(t, *claims.Video.CanSubscribe)
	assert.True(t, *claims.Video.CanPublishData)
	assert.Nil(t, claims.Video.CanUpdateOwnMetadata)

	ttl := claims.ExpiresAt.Sub(claims.NotBefore.Time)
	assert.Equal(t, time.Hour, ttl)
}

func TestAgentToken(t *testing.T) {
	iss := livekit.NewIssuer("APIkey", "secret", time.Hour)

	tok, err := iss.AgentToken("room", "ArtGuideAgent")
	require.NoError(t, err)

	claims, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "ArtGuideAgent", claims.Subject)
	assert.JSONEq(t, `{"type":"agent"}`, claims.Metadata)
	require.NotNil(t, claims.Video.CanUpdateOwnMetadata)
	assert.True(t, *claims.Video.CanUpdateOwnMetadata)
}

func TestToken_Errors(t *testing.T) {
	_, err := livekit.NewIssuer("", "", time.Hour).ParticipantToken("room", "a", "")
	assert.ErrorIs(t, err, livekit.ErrNotConfigured)

	_, err = livekit.NewIssuer("k", "s", time.Hour).AgentToken("  ", "")
	assert.ErrorIs(t, err, livekit.ErrRoomRequired)
}

func TestParse_RejectsForeignSecret(t *testing.T) {
	tok, err := livekit.NewIssuer("k", "one", time.Hour).ParticipantToken("room", "a", "")
	require.NoError(t, err)

	_, err = livekit.NewIssuer("k", "two", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, livekit.ErrInvalidToken)
}

func TestParse_RejectsOtherAlgorithm(t *testing.T) {
	claims := livekit.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "k"}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("s"))
	require.NoError(t, err)

	_, err = livekit.NewIssuer("k", "s", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, livekit.ErrInvalidToken)
}

func TestRoomName(t *testing.T) {
	at := time.UnixMilli(1700000000123)

	assert.Equal(t, "artwork-the-starry-night-1700000000123", livekit.RoomName("The Starry Night", at))

	long := livekit.RoomName(strings.Repeat("Ab", 40), at)
	slug := strings.TrimSuffix(strings.TrimPrefix(long, "artwork-"), "-1700000000123")
	assert.Len(t, slug, 50)
	assert.Equal(t, "artwork---1700000000123", livekit.RoomName("é", at))
}

func TestAgentMetadata(t *testing.T) {
	md, err := livekit.AgentMetadata(livekit.Artwork{
		ImageURI: "file://img.jpg",
		Title:    "Mona Lisa",
		Artist:   "Leonardo da Vinci",
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(md), &decoded))
	assert.Equal(t, "artwork_analysis", decoded["type"])
	data := decoded["data"].(map[string]any)
	assert.Equal(t, "Mona Lisa", data["title"])
	assert.Equal(t, "file://img.jpg", data["imageUri"])
	assert.NotContains(t, data, "emotions")
	assert.Contains(t, decoded["instructions"], "art historian")
}
