package telemetry

import (
	"fmt"
	"math"

	"rotanim/pkg/anim"
	"rotanim/pkg/config"
)

// params wraps decoded JSON-RPC parameters.
type params map[string]any

func (p params) str(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", invalidParams("missing %q parameter", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", invalidParams("%q must be a non-empty string", key)
	}
	return s, nil
}

func (p params) number(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalidParams("%q must be a number", key)
	}
	return f, nil
}

func (p params) integer(key string, def int) (int, error) {
	f, err := p.number(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, invalidParams("%q must be an integer", key)
	}
	return int(f), nil
}

func (p params) boolean(key string) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalidParams("%q must be a boolean", key)
	}
	return b, nil
}

// strings reads an optional list of strings. A missing or null value
// returns nil.
func (p params) strings(key string) ([]string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, invalidParams("%q must be a list of strings", key)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, invalidParams("%q must be a list of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// kind reads a trigger name, accepting the same spellings as model files.
func (p params) kind(key string) (anim.TriggerKind, error) {
	name, err := p.str(key)
	if err != nil {
		return anim.KindNone, err
	}
	k, _ := config.ParseTrigger(name)
	if !k.Valid() {
		return anim.KindNone, invalidParams("unknown trigger %q", name)
	}
	return k, nil
}

// direction reads a play direction: 1 forwards, -1 backwards.
func (p params) direction(key string) (int, error) {
	d, err := p.integer(key, 1)
	if err != nil {
		return 0, err
	}
	switch {
	case d > 0:
		return 1, nil
	case d < 0:
		return -1, nil
	}
	return 0, invalidParams("%q must be non-zero", key)
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *rpcError) Error() string { return e.Message }

// JSON-RPC 2.0 error codes.
const (
	codeParse          = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServer         = -32000
)

func invalidParams(format string, args ...any) *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf(format, args...)}
}
