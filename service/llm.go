package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fieldline/fieldline/config"
)

// FieldElement is one candidate contract field streamed by the language
// model: the field's name and type, the verbatim bracketed placeholder, the
// free-text signer reference, and up to 30 characters of surrounding context
// on each side
type FieldElement struct {
	FieldName       string `json:"field_name"`
	FieldType       string `json:"field_type"`
	PlaceholderText string `json:"placeholder_text"`
	SignerReference string `json:"signer_reference"`
	Prefix          string `json:"prefix"`
	Suffix          string `json:"suffix"`
	Context         string `json:"context,omitempty"`
	IsRequired      bool   `json:"is_required"`
}

// FieldStreamer yields field elements one at a time, in model output order.
// onElement is invoked sequentially; returning an error stops the stream.
type FieldStreamer interface {
	StreamFieldElements(ctx context.Context, documentText string, onElement func(FieldElement) error) error
}

// LLMService talks to an OpenAI-compatible Responses API and streams
// structured field elements out of the response text
type LLMService struct {
	config     *config.LLMConfig
	httpClient *http.Client
}

func NewLLMService(cfg *config.LLMConfig) *LLMService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &LLMService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

const fieldExtractionPrompt = `You extract signable contract fields from a document.
Find every bracketed placeholder (for example "[Signature]" or "[Company Name]").
For each occurrence output exactly one JSON object on its own line with keys:
field_name, field_type (name|email|company|address|phone|date|signature|other),
placeholder_text (verbatim, including brackets), signer_reference (the party the
field belongs to, e.g. "Client" or "Vendor"), prefix (up to 30 characters of text
immediately before the placeholder), suffix (up to 30 characters immediately
after), context (optional section label), is_required (boolean).
Output nothing but these JSON lines, in document order.`

type llmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type llmStreamRequest struct {
	Model       string       `json:"model"`
	Input       []llmMessage `json:"input"`
	Temperature float64      `json:"temperature"`
	Stream      bool         `json:"stream"`
}

// StreamFieldElements requests a field-element stream for the document text
// and invokes onElement for each complete element, strictly in arrival
// order. The model emits one JSON object per line inside output_text deltas;
// partial lines are buffered until their newline arrives.
func (s *LLMService) StreamFieldElements(ctx context.Context, documentText string, onElement func(FieldElement) error) error {
	reqBody := llmStreamRequest{
		Model: s.config.Model,
		Input: []llmMessage{
			{Role: "system", Content: fieldExtractionPrompt},
			{Role: "user", Content: documentText},
		},
		Temperature: s.config.Temperature,
		Stream:      true,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+"/v1/responses", &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("LLM API error: status %d: %s", resp.StatusCode, string(raw))
	}

	var pending strings.Builder
	flushLines := func(final bool) error {
		text := pending.String()
		for {
			idx := strings.IndexByte(text, '\n')
			if idx < 0 {
				break
			}
			line := strings.TrimSpace(text[:idx])
			text = text[idx+1:]
			if err := decodeElementLine(line, onElement); err != nil {
				return err
			}
		}
		pending.Reset()
		if final {
			if err := decodeElementLine(strings.TrimSpace(text), onElement); err != nil {
				return err
			}
		} else {
			pending.WriteString(text)
		}
		return nil
	}

	err = streamSSE(resp.Body, func(event string, data string) error {
		if strings.TrimSpace(data) == "" || strings.TrimSpace(data) == "[DONE]" {
			return nil
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(data), &obj); err != nil {
			return nil
		}

		evt := strings.TrimSpace(event)
		if t, ok := obj["type"].(string); ok && strings.TrimSpace(t) != "" {
			evt = strings.TrimSpace(t)
		}

		if r, ok := obj["refusal"].(string); ok && strings.TrimSpace(r) != "" {
			return fmt.Errorf("model refused: %s", r)
		}
		if eAny, ok := obj["error"]; ok && eAny != nil {
			b, _ := json.Marshal(eAny)
			return fmt.Errorf("LLM stream error: %s", string(b))
		}

		if d, ok := obj["delta"].(string); ok && d != "" {
			if strings.Contains(evt, "output_text.delta") {
				pending.WriteString(d)
				return flushLines(false)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// The last element may not be newline-terminated.
	return flushLines(true)
}

// decodeElementLine parses one JSON line into a FieldElement. Lines that are
// empty or fail to decode are skipped rather than failing the stream.
func decodeElementLine(line string, onElement func(FieldElement) error) error {
	if line == "" {
		return nil
	}
	var element FieldElement
	if err := json.Unmarshal([]byte(line), &element); err != nil {
		return nil
	}
	if element.FieldName == "" || element.PlaceholderText == "" {
		return nil
	}
	return onElement(element)
}

// streamSSE reads a text/event-stream, invoking onEvent once per event with
// the event name and the joined data lines
func streamSSE(r io.Reader, onEvent func(event string, data string) error) error {
	br := bufio.NewReader(r)
	var (
		eventName string
		dataLines []string
	)

	flush := func() error {
		if len(dataLines) == 0 {
			eventName = ""
			return nil
		}
		data := strings.Join(dataLines, "\n")
		dataLines = nil
		ev := eventName
		eventName = ""
		return onEvent(ev, data)
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return flush()
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		// Blank line ends the event.
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}

		// Comment line.
		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "event:") {
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			continue
		}
	}
}
