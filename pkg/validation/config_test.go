package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigValidator(t *testing.T) {
	allowed := []string{"pgx", "mysql", "sqlite"}
	tests := []struct {
		name    string
		cv      *ConfigValidator
		wantErr bool
	}{
		{"required empty", NewConfigValidator("Options").Required("Schema", ""), true},
		{"required set", NewConfigValidator("Options").Required("Schema", "graphize.yaml"), false},
		{"below range", NewConfigValidator("Options").RangeInt("Workers", 0, 1, 256), true},
		{"above range", NewConfigValidator("Options").RangeInt("Workers", 300, 1, 256), true},
		{"inside range", NewConfigValidator("Options").RangeInt("Workers", 8, 1, 256), false},
		{"allowed value", NewConfigValidator("Options").OneOf("Driver", "mysql", allowed), false},
		{"disallowed value", NewConfigValidator("Options").OneOf("Driver", "oracle", allowed), true},
		{"identifier", NewConfigValidator("Options").Identifier("Table", "public.people"), false},
		{"bad identifier", NewConfigValidator("Options").Identifier("Table", "people; drop"), true},
		{"empty identifier", NewConfigValidator("Options").Identifier("Table", ""), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cv.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() should wrap ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfigValidator_OneOfMentionsValue(t *testing.T) {
	err := NewConfigValidator("Options").OneOf("Driver", "oracle", []string{"pgx"}).Validate()
	if err == nil || !strings.Contains(err.Error(), `"oracle"`) {
		t.Errorf("error should mention the value: %v", err)
	}
}

func TestConfigValidator_CustomAndWhen(t *testing.T) {
	sentinel := errors.New("boom")
	err := NewConfigValidator("Options").
		Custom("Schema", func() error { return sentinel }).
		When(false, func(cv *ConfigValidator) { cv.Required("Never", "") }).
		Validate()
	if !errors.Is(err, sentinel) {
		t.Fatalf("Custom errors should be wrapped, got %v", err)
	}
	if strings.Contains(err.Error(), "Never") {
		t.Errorf("When(false) must not run its validations: %v", err)
	}

	err = NewConfigValidator("Options").
		When(true, func(cv *ConfigValidator) { cv.Required("Always", "") }).
		Validate()
	if err == nil || !strings.Contains(err.Error(), "Options.Always") {
		t.Errorf("When(true) should run its validations, got %v", err)
	}
}

func TestConfigValidator_ValidateJoinsErrors(t *testing.T) {
	err := NewConfigValidator("Options").
		Required("Schema", "").
		RangeInt("Workers", 0, 1, 8).
		Validate()
	if err == nil {
		t.Fatal("Expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Options.Schema") || !strings.Contains(msg, "Options.Workers") {
		t.Errorf("Validate() should report all errors, got %q", msg)
	}

	if err := NewConfigValidator("Options").Validate(); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}

func TestDefaultOrInt(t *testing.T) {
	if got := DefaultOrInt(0, 4); got != 4 {
		t.Errorf("DefaultOrInt(0, 4) = %d", got)
	}
	if got := DefaultOrInt(2, 4); got != 2 {
		t.Errorf("DefaultOrInt(2, 4) = %d", got)
	}
}
