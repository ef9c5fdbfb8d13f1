package snapshot

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"bild-story/story"
)

// DecodeError indica un payload malformato. Chi importa deve segnalarlo
// e mantenere lo stato precedente.
type DecodeError struct {
	Stage string // "base64", "json", "schema"
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("snapshot decode (%s): %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError verifica se l'errore deriva da un payload malformato
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Encode serializza il grafo nel formato JSON compatto
func Encode(g *story.Graph) ([]byte, error) {
	if g == nil {
		return nil, errors.New("snapshot encode: nil graph")
	}
	data, err := json.Marshal(normalized(g))
	if err != nil {
		return nil, fmt.Errorf("snapshot encode: %w", err)
	}
	return data, nil
}

// EncodeIndent serializza il grafo con indentazione (file e download)
func EncodeIndent(g *story.Graph) ([]byte, error) {
	if g == nil {
		return nil, errors.New("snapshot encode: nil graph")
	}
	data, err := json.MarshalIndent(normalized(g), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("snapshot encode: %w", err)
	}
	return data, nil
}

func normalized(g *story.Graph) *story.Graph {
	out := g.Clone()
	out.Normalize()
	return out
}

// Decode ricostruisce il grafo da uno snapshot JSON.
// Il payload deve essere un oggetto con almeno la chiave "scenes".
func Decode(data []byte) (*story.Graph, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &DecodeError{Stage: "json", Err: errors.New("empty payload")}
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, &DecodeError{Stage: "json", Err: err}
	}
	if _, ok := probe["scenes"]; !ok {
		return nil, &DecodeError{Stage: "schema", Err: errors.New(`missing "scenes"`)}
	}

	var g story.Graph
	if err := json.Unmarshal(trimmed, &g); err != nil {
		return nil, &DecodeError{Stage: "schema", Err: err}
	}
	g.Normalize()
	return &g, nil
}
