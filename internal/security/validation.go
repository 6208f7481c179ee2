package security

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Request body limits applied by the gateway.
const (
	DefaultMaxBodySize  = 1 << 20
	DefaultMaxJSONDepth = 32
)

// Validation errors.
var (
	ErrBodyTooLarge = errors.New("request body exceeds maximum size")
	ErrJSONTooDeep  = errors.New("JSON nesting exceeds maximum depth")
	ErrInvalidJSON  = errors.New("invalid JSON")
)

// DecodeJSON reads at most maxSize bytes from r, rejects documents nested
// deeper than DefaultMaxJSONDepth and unmarshals into v. maxSize <= 0 uses
// DefaultMaxBodySize.
func DecodeJSON(r io.Reader, maxSize int, v any) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(maxSize)+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxSize {
		return fmt.Errorf("%w (max %d bytes)", ErrBodyTooLarge, maxSize)
	}
	if err := ValidateJSONDepth(data, DefaultMaxJSONDepth); err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return nil
}

// ValidateJSONDepth checks that data does not nest objects or arrays
// deeper than limit. limit <= 0 uses DefaultMaxJSONDepth.
func ValidateJSONDepth(data []byte, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxJSONDepth
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}

		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			if depth > limit {
				return fmt.Errorf("%w: depth %d (max %d)", ErrJSONTooDeep, depth, limit)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}
