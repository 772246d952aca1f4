package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/platform/auth/jwtverifier"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/platform/config"
)

const readyTourYAML = `
title: Galle Fort Walk
tour_stops:
  - id: b
    sequence_no: 2
    stop_name: Lighthouse
    location: {latitude: 6.0260, longitude: 80.2170}
    media:
      - {id: m2, media_type: audio, duration_seconds: 60, url: "https://cdn.example/b.mp3"}
  - id: a
    sequence_no: 1
    stop_name: Clock Tower
    location: {latitude: 6.0269, longitude: 80.2170}
    media:
      - {id: m1, type: audio, duration: 120, url: "https://cdn.example/a.mp3"}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidate_YAMLReady(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "validate", "--strict", writeFile(t, "tour.yaml", readyTourYAML))
	require.NoError(t, err)

	var rep validateReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.False(t, rep.HasErrors)
	assert.True(t, rep.SubmitGate.OK)
	assert.Equal(t, 180, rep.Quote.TotalAudioSeconds)
	assert.Equal(t, 1500.0, rep.Quote.Price)
	assert.Equal(t, "3m 0s", rep.Duration)
}

func TestValidate_JSONStdinWithErrors(t *testing.T) {
	t.Parallel()

	in := `{"tour_stops":[
		{"sequence_no":1,"stop_name":"A","media":[]},
		{"sequence_no":2,"stop_name":"B","location":{"latitude":6.9,"longitude":79.8},"media":[]}
	]}`
	out, err := execute(t, in, "validate", "-")
	require.ErrorIs(t, err, errHasErrors)

	var rep validateReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, "LOCATION_MISSING", rep.Warnings[0].Code)
	assert.False(t, rep.SubmitGate.OK)
}

func TestValidate_StrictFailsOnGate(t *testing.T) {
	t.Parallel()

	// A single located stop with audio has no pairwise findings but cannot be submitted.
	in := `{"tour_stops":[{"stop_name":"A","location":{"latitude":6.9,"longitude":79.8},
		"media":[{"media_type":"audio","duration_seconds":30}]}]}`
	_, err := execute(t, in, "validate", "-")
	require.NoError(t, err)
	_, err = execute(t, in, "validate", "--strict", "-")
	require.ErrorIs(t, err, errHasErrors)
}

func TestValidate_BadInput(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "", "validate", writeFile(t, "tour.yaml", "tour_stops: [unclosed"))
	require.Error(t, err)

	_, err = execute(t, `{"tour_stops":[{"media":[{"media_type":"video"}]}]}`, "validate", "-")
	require.Error(t, err)

	_, err = execute(t, "", "validate", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestQuote(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "quote", writeFile(t, "tour.yml", readyTourYAML))
	require.NoError(t, err)
	assert.Contains(t, out, "audio:    3m 0s")
	assert.Contains(t, out, "duration: 3 min")
	assert.Contains(t, out, "price:    1500.00 LKR")
}

func TestProbe(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "probe", writeFile(t, "notes.txt", "plain text"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt\tunsupported\n", out)
}

func TestDevJWT_VerifiesWithSameSecret(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "devjwt", "--secret", "s3cret", "--issuer", "tourctl", "guide-42")
	require.NoError(t, err)

	v, err := jwtverifier.New(config.AuthConfig{Mode: config.AuthModeHMAC, JWTSecret: "s3cret", Issuer: "tourctl"})
	require.NoError(t, err)
	sub, err := v.Verify(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "guide-42", sub)
}
