package transcriber

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"murmur/log"
)

const (
	groqTranscribeURL = "https://api.groq.com/openai/v1/audio/transcriptions"
	groqCompleteURL   = "https://api.groq.com/openai/v1/chat/completions"

	whisperModel = "whisper-large-v3-turbo"
	chatModel    = "llama-3.3-70b-versatile"

	transcribePrompt = "Lightly clean filler words; preserve meaning."
)

type Groq struct {
	client        *TracedClient
	ring          *KeyRing
	lang          string
	transcribeURL string
	completeURL   string
}

func NewGroq(ring *KeyRing) *Groq {
	g := &Groq{
		client:        NewTracedClient(),
		ring:          ring,
		transcribeURL: groqTranscribeURL,
		completeURL:   groqCompleteURL,
	}
	go g.client.WarmConnection(g.transcribeURL)
	return g
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) SetLanguage(lang string) { g.lang = lang }

func (g *Groq) Transcribe(audio []byte, format string) (string, error) {
	return g.withKey(func(key string) (string, error) {
		return g.transcribeOnce(key, audio, format)
	})
}

func (g *Groq) Complete(systemPrompt, userText string) (string, error) {
	return g.withKey(func(key string) (string, error) {
		return g.completeOnce(key, systemPrompt, userText)
	})
}

// withKey sweeps the ring once: each credential is tried at most one time
// within a single call. Rate-limit classified failures put the key into
// cooldown; any failure advances to the next key.
func (g *Groq) withKey(call func(key string) (string, error)) (string, error) {
	var errs []string
	for range g.ring.Len() {
		key, ok := g.ring.Next()
		if !ok {
			break
		}
		text, err := call(key)
		if err == nil {
			return text, nil
		}
		if isRateLimited(err.Error()) {
			until := g.ring.Cooldown(key)
			log.KeyCooldown(keyPreview(key), until)
			errs = append(errs, keyPreview(key)+" rate-limited")
			continue
		}
		log.Warnf("key %s failed: %v", keyPreview(key), err)
		errs = append(errs, keyPreview(key)+" failed")
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%w: every key is in cooldown", ErrKeysExhausted)
	}
	return "", fmt.Errorf("%w: %s", ErrKeysExhausted, strings.Join(errs, "; "))
}

func logMetrics(kind string, m *NetworkMetrics) {
	if m == nil {
		return
	}
	log.RequestMetrics(kind, log.HTTPMetrics{
		DNSMs:      float64(m.DNS.Milliseconds()),
		TLSMs:      float64(m.TLS.Milliseconds()),
		TTFBMs:     float64(m.TTFB.Milliseconds()),
		TotalMs:    float64(m.Total.Milliseconds()),
		ConnReused: m.ConnReused,
	})
}

type groqTranscription struct {
	Text string `json:"text"`
}

func (g *Groq) transcribeOnce(key string, audio []byte, format string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+format)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}

	writer.WriteField("model", whisperModel)
	writer.WriteField("response_format", "json")
	writer.WriteField("prompt", transcribePrompt)
	writer.WriteField("temperature", "0")
	if g.lang != "" {
		writer.WriteField("language", g.lang)
	}
	writer.Close()

	req, err := http.NewRequest("POST", g.transcribeURL, &body)
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var tResp groqTranscription
	if err := json.Unmarshal(resp.Body, &tResp); err != nil {
		return "", fmt.Errorf("groq response parse error: %w", err)
	}

	logMetrics("transcribe", resp.Metrics)
	return strings.TrimSpace(tResp.Text), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *Groq) completeOnce(key, systemPrompt, userText string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", g.completeURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var cResp chatResponse
	if err := json.Unmarshal(resp.Body, &cResp); err != nil {
		return "", fmt.Errorf("groq response parse error: %w", err)
	}
	if len(cResp.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}

	logMetrics("complete", resp.Metrics)
	return strings.TrimSpace(cResp.Choices[0].Message.Content), nil
}
