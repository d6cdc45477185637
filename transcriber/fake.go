package transcriber

import "sync"

// FakeClient satisfies Client for tests. By default every call succeeds with
// the configured text; TranscribeFn/CompleteFn override per-call behavior.
type FakeClient struct {
	Text string
	Err  error

	TranscribeFn func(audio []byte, format string) (string, error)
	CompleteFn   func(systemPrompt, userText string) (string, error)

	mu              sync.Mutex
	transcribeCalls int
	completeCalls   int
}

func NewFake(text string, err error) *FakeClient {
	return &FakeClient{Text: text, Err: err}
}

func (f *FakeClient) Name() string { return "fake" }

func (f *FakeClient) Transcribe(audio []byte, format string) (string, error) {
	f.mu.Lock()
	f.transcribeCalls++
	f.mu.Unlock()
	if f.TranscribeFn != nil {
		return f.TranscribeFn(audio, format)
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

func (f *FakeClient) Complete(systemPrompt, userText string) (string, error) {
	f.mu.Lock()
	f.completeCalls++
	f.mu.Unlock()
	if f.CompleteFn != nil {
		return f.CompleteFn(systemPrompt, userText)
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

func (f *FakeClient) TranscribeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transcribeCalls
}

func (f *FakeClient) CompleteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completeCalls
}
