package snapshot

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"

	"bild-story/story"
)

// ShareParam è il parametro di query che trasporta lo snapshot
const ShareParam = "data"

// EncodeShare codifica il grafo in base64 (alfabeto standard) per i link di condivisione
// e per il payload del player esportato
func EncodeShare(g *story.Graph) (string, error) {
	data, err := Encode(g)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeShare accetta base64 standard o URL-safe, con o senza padding
func DecodeShare(payload string) (*story.Graph, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, &DecodeError{Stage: "base64", Err: errors.New("empty payload")}
	}

	// un "+" non codificato in query arriva come spazio
	payload = strings.ReplaceAll(payload, " ", "+")

	data, err := decodeBase64(payload)
	if err != nil {
		return nil, &DecodeError{Stage: "base64", Err: err}
	}
	return Decode(data)
}

func decodeBase64(payload string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var firstErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(payload)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// ShareURL costruisce il link di condivisione aggiungendo ?data=... all'URL base
func ShareURL(base string, g *story.Graph) (string, error) {
	payload, err := EncodeShare(g)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(ShareParam, payload)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseShareURL estrae e decodifica lo snapshot da un link di condivisione.
// Accetta anche il solo payload.
func ParseShareURL(raw string) (*story.Graph, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "?") && !strings.HasPrefix(raw, ShareParam+"=") {
		return DecodeShare(raw)
	}

	query := raw
	if i := strings.Index(raw, "?"); i >= 0 {
		query = raw[i+1:]
	}
	if i := strings.Index(query, "#"); i >= 0 {
		query = query[:i]
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, &DecodeError{Stage: "base64", Err: err}
	}
	payload := values.Get(ShareParam)
	if payload == "" {
		return nil, &DecodeError{Stage: "base64", Err: errors.New(`missing "data" parameter`)}
	}
	return DecodeShare(payload)
}
