package smoke

import (
	"encoding/json"
	"strings"
)

type ChunkKind int

const (
	// ChunkUnrecognized is a line that carries no agent text: blank lines,
	// non-JSON keep-alives and intermediate tool-call events.
	ChunkUnrecognized ChunkKind = iota
	// ChunkParts is the canonical event shape, content.parts[].text.
	ChunkParts
	// ChunkOutput is the flat {"output": ...} shape of older runtimes.
	ChunkOutput
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkParts:
		return "parts"
	case ChunkOutput:
		return "output"
	default:
		return "unrecognized"
	}
}

// Chunk is one parsed line of a streamQuery response.
type Chunk struct {
	Kind ChunkKind
	Text string
}

type streamEvent struct {
	Content *struct {
		Parts []struct {
			Text *string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
	Output json.RawMessage `json:"output"`
}

// ParseChunk decodes one stream line. An optional "data: " prefix is
// stripped. Parts take precedence over output; a parts list without any text
// yields an empty ChunkParts.
func ParseChunk(line string) Chunk {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "data:"))
	if line == "" {
		return Chunk{Kind: ChunkUnrecognized}
	}

	var ev streamEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return Chunk{Kind: ChunkUnrecognized}
	}

	if ev.Content != nil && ev.Content.Parts != nil {
		var b strings.Builder
		for _, p := range ev.Content.Parts {
			if p.Text != nil {
				b.WriteString(*p.Text)
			}
		}
		return Chunk{Kind: ChunkParts, Text: b.String()}
	}

	if len(ev.Output) > 0 && string(ev.Output) != "null" {
		return Chunk{Kind: ChunkOutput, Text: outputText(ev.Output)}
	}

	return Chunk{Kind: ChunkUnrecognized}
}

// outputText renders an output value: strings verbatim, anything else as
// its JSON text.
func outputText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
