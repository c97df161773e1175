package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *AnimError
		want string
	}{
		{"object and part", NoSlotError("carrier", "door01"), "[ANIM_NO_SLOT:carrier/door01] part has no motion slot"},
		{"object only", UnknownObjectError("tender"), "[ANIM_UNKNOWN_OBJECT:tender] object not registered"},
		{"part only", New(ErrAnimUnknownPart, "no such part").SetTarget("", "radar"), "[ANIM_UNKNOWN_PART:radar] no such part"},
		{"section", New(ErrConfigSection, "missing").SetSection("host"), "[CONFIG_SECTION:host] missing"},
		{"option", ConfigOptionError("host", "tick", "required"), "[CONFIG_OPTION:host.tick] required"},
		{"wrapped", Wrap(io.EOF, ErrRuntime, "read"), "[RUNTIME:] read: EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsWalksChain(t *testing.T) {
	inner := New(ErrAnimQueueFull, "queue full")
	outer := Wrap(inner, ErrRuntime, "dispatch")
	wrapped := fmt.Errorf("tick: %w", outer)

	if !Is(wrapped, ErrAnimQueueFull) {
		t.Error("Expected inner code to be found through the chain")
	}
	if !Is(wrapped, ErrRuntime) {
		t.Error("Expected outer code to be found")
	}
	if Is(wrapped, ErrAnimNoSlot) {
		t.Error("Unexpected code match")
	}
	if Is(io.EOF, ErrRuntime) || Is(nil, ErrRuntime) {
		t.Error("Plain errors carry no code")
	}
	if !stderrors.Is(outer, inner) {
		t.Error("Expected Unwrap to expose the inner error")
	}
}

func TestCodeOf(t *testing.T) {
	code, ok := CodeOf(fmt.Errorf("ctx: %w", UnknownObjectError("x")))
	if !ok || code != ErrAnimUnknownObject {
		t.Errorf("CodeOf = %q, %v", code, ok)
	}
	if _, ok := CodeOf(io.EOF); ok {
		t.Error("Expected no code for a plain error")
	}
}

func TestCategories(t *testing.T) {
	typeErr := ConfigTypeError("animation door01 1", "angle", "abc", "degrees", io.ErrUnexpectedEOF)
	if !IsConfig(typeErr) || IsAnim(typeErr) {
		t.Error("Expected a config error")
	}
	if typeErr.Section != "animation door01 1" || typeErr.Option != "angle" {
		t.Errorf("Unexpected location %q.%q", typeErr.Section, typeErr.Option)
	}
	if !stderrors.Is(typeErr, io.ErrUnexpectedEOF) {
		t.Error("Expected parse error in the chain")
	}

	for _, code := range []ErrorCode{ErrAnimNoSlot, ErrAnimUnknownKind, ErrAnimStaleHandle, ErrAnimStackEmpty} {
		if err := New(code, "x"); !IsAnim(err) || IsConfig(err) {
			t.Errorf("Expected %s to be an animation error", code)
		}
	}
	if IsAnim(New(ErrRuntimeInit, "listen")) {
		t.Error("Runtime errors are not animation errors")
	}
}

func TestSetContext(t *testing.T) {
	err := New(ErrAnimQueueFull, "full").SetContext("depth", 2).SetContext("kind", "fighterbay")
	if err.Context["depth"] != 2 || err.Context["kind"] != "fighterbay" {
		t.Errorf("Unexpected context %v", err.Context)
	}
}

func TestFromPanic(t *testing.T) {
	recovered := func(v interface{}) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = FromPanic(r)
			}
		}()
		panic(v)
	}

	err := recovered("boom")
	if !Is(err, ErrRuntime) || err.Error() != "[RUNTIME:] panic: boom" {
		t.Errorf("Unexpected error %v", err)
	}
	err = recovered(io.EOF)
	if !stderrors.Is(err, io.EOF) {
		t.Errorf("Expected panic error wrapped, got %v", err)
	}
	err = recovered(42)
	if err.Error() != "[RUNTIME:] panic: 42" {
		t.Errorf("Unexpected error %v", err)
	}
}
