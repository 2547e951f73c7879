package validation

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kbukum/primesieve/errors"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("name", "primes")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("name", "   ")
	if !v2.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorOptionalUUID(t *testing.T) {
	v := New()
	v.OptionalUUID("request_id", "")
	v.OptionalUUID("request_id", uuid.NewString())
	if v.HasErrors() {
		t.Errorf("expected no errors, got %v", v.Errors())
	}

	v2 := New()
	v2.OptionalUUID("request_id", "nope")
	if !v2.HasErrors() {
		t.Error("expected error for invalid UUID")
	}
}

func TestValidatorNumeric(t *testing.T) {
	tests := []struct {
		name    string
		run     func(*Validator)
		wantErr string
	}{
		{"range ok", func(v *Validator) { v.Range("high", 36, 0, 100) }, ""},
		{"range low", func(v *Validator) { v.Range("high", -1, 0, 100) }, "between 0 and 100"},
		{"min ok", func(v *Validator) { v.Min("low", 0, 0) }, ""},
		{"min fail", func(v *Validator) { v.Min("low", -5, 0) }, "at least 0"},
		{"max ok", func(v *Validator) { v.Max("high", 1_000_000, 1_000_000) }, ""},
		{"max fail", func(v *Validator) { v.Max("high", 1_000_001, 1_000_000) }, "1000000 or less"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New()
			tc.run(v)
			appErr := v.Validate()
			if tc.wantErr == "" {
				if appErr != nil {
					t.Errorf("unexpected error: %v", appErr)
				}
				return
			}
			if appErr == nil || !strings.Contains(appErr.Message, tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, appErr)
			}
		})
	}
}

func TestValidatorOneOf(t *testing.T) {
	v := New()
	v.OneOf("format", "json", []string{"lines", "json"})
	v.OneOf("format", "", []string{"lines", "json"})
	if v.HasErrors() {
		t.Errorf("expected no errors, got %v", v.Errors())
	}

	v2 := New()
	v2.OneOf("format", "xml", []string{"lines", "json"})
	if !v2.HasErrors() {
		t.Error("expected error for disallowed value")
	}
}

func TestValidatorValidate(t *testing.T) {
	v := New()
	if v.Validate() != nil {
		t.Error("expected nil for no errors")
	}

	v.Custom(false, "high", "must be greater than or equal to low")
	v.Max("high", 10, 5)
	appErr := v.Validate()
	if appErr == nil {
		t.Fatal("expected error")
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 2 {
		t.Errorf("expected 2 field errors in details, got %v", appErr.Details["fields"])
	}
}

func TestRequiredFunc(t *testing.T) {
	if err := Required("name", "x"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Required("name", ""); err == nil {
		t.Error("expected error")
	}
}

type sampleConfig struct {
	Low       int64  `mapstructure:"low" validate:"gte=0"`
	Transport string `mapstructure:"transport" validate:"oneof=chan pipe"`
	Server    struct {
		Addr string `mapstructure:"addr" validate:"required"`
	} `mapstructure:"server"`
}

func TestStructValidateValid(t *testing.T) {
	cfg := sampleConfig{Low: 2, Transport: "pipe"}
	cfg.Server.Addr = ":8080"
	if err := Validate(&cfg); err != nil {
		t.Errorf("expected valid, got %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	cfg := sampleConfig{Low: -1, Transport: "socket"}
	err := Validate(&cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"low: must be at least 0", "transport: must be one of: chan pipe", "server.addr: is required"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT AppError, got %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("MaxStages"); got != "max_stages" {
		t.Errorf("got %q", got)
	}
}
