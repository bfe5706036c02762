package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultSpeechURL is the Lemonfox speech endpoint.
const DefaultSpeechURL = "https://api.lemonfox.ai/v1/audio/speech"

// HTTPSynthesizer calls a Lemonfox style speech endpoint.
type HTTPSynthesizer struct {
	URL    string
	APIKey string
	// Format is the response_format field, mp3 when empty.
	Format string
	// Voices maps narrator voice names to service voice ids. Names without
	// an entry are sent to the service as is; the empty name maps to
	// DefaultServiceVoice.
	Voices map[string]string
	Client *http.Client
}

// DefaultServiceVoice is the service voice used when a name is unmapped.
const DefaultServiceVoice = "heart"

// NewHTTPSynthesizer returns a synthesizer with a bounded client timeout.
func NewHTTPSynthesizer(url, apiKey string) *HTTPSynthesizer {
	if url == "" {
		url = DefaultSpeechURL
	}
	return &HTTPSynthesizer{
		URL:    url,
		APIKey: apiKey,
		Voices: map[string]string{DefaultVoice: DefaultServiceVoice},
		Client: &http.Client{Timeout: 20 * time.Second},
	}
}

type speechRequest struct {
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Language       string  `json:"language"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
	WordTimestamps bool    `json:"word_timestamps"`
}

func (h *HTTPSynthesizer) voiceFor(name string) string {
	if v, ok := h.Voices[name]; ok {
		return v
	}
	if name == "" {
		return DefaultServiceVoice
	}
	return name
}

// Synthesize posts text and returns the audio body. Pitch has no
// equivalent on this service and is dropped.
func (h *HTTPSynthesizer) Synthesize(ctx context.Context, text string, voice VoiceParams) ([]byte, error) {
	if h.APIKey == "" {
		return nil, &SynthesisError{Status: StatusUnavailable, Err: errors.New("no api key configured")}
	}
	voice = voice.Normalize()
	format := h.Format
	if format == "" {
		format = "mp3"
	}
	body, err := json.Marshal(speechRequest{
		Input:          text,
		Voice:          h.voiceFor(voice.Voice),
		Language:       strings.ToLower(voice.Language),
		ResponseFormat: format,
		Speed:          voice.Rate,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode speech request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build speech request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.APIKey)

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &SynthesisError{Status: StatusNetwork, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &SynthesisError{
			Status: classify(resp.StatusCode),
			Code:   resp.StatusCode,
			Err:    fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg))),
		}
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SynthesisError{Status: StatusNetwork, Err: err}
	}
	if len(audio) == 0 {
		return nil, &SynthesisError{Status: StatusOther, Code: resp.StatusCode, Err: errors.New("empty audio body")}
	}
	return audio, nil
}

func classify(code int) Status {
	switch code {
	case http.StatusTooManyRequests:
		return StatusRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return StatusUnavailable
	default:
		return StatusOther
	}
}
