package shortcode

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/snip/internal/domain"
)

func TestRandomGenerator_Generate(t *testing.T) {
	gen := NewRandomGenerator()
	lengths := make(map[int]int)

	for i := 0; i < 3000; i++ {
		code := gen.Generate()

		require.GreaterOrEqual(t, len(code), MinLength)
		require.LessOrEqual(t, len(code), MaxLength)
		for _, c := range code {
			require.True(t, strings.ContainsRune(Alphabet, c), "invalid character %q in %q", c, code)
		}
		lengths[len(code)]++
	}

	for l := MinLength; l <= MaxLength; l++ {
		assert.Greater(t, lengths[l], 0, "length %d never generated", l)
	}
}

func TestRandomGenerator_GeneratedCodesPassValidation(t *testing.T) {
	gen := NewRandomGenerator()
	for i := 0; i < 200; i++ {
		code := gen.Generate()
		got, err := Validate(code)
		require.NoError(t, err)
		assert.Equal(t, code, got)
	}
}

func TestGeneratorFunc(t *testing.T) {
	var g Generator = GeneratorFunc(func() string { return "fixed1" })
	assert.Equal(t, "fixed1", g.Generate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "six characters", input: "abc123", want: "abc123"},
		{name: "eight characters", input: "ABCdef12", want: "ABCdef12"},
		{name: "trimmed", input: "  abc123\t", want: "abc123"},
		{name: "too short", input: "abc12", wantErr: true},
		{name: "too long", input: "abcdefghi", wantErr: true},
		{name: "hyphen", input: "abc-123", wantErr: true},
		{name: "underscore", input: "abc_123", wantErr: true},
		{name: "non ascii", input: "abcdeé", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "only spaces", input: "      ", wantErr: true},
		{name: "health route", input: "healthz", wantErr: true},
		{name: "metrics route", input: "metrics", wantErr: true},
		{name: "swagger route", input: "swagger", wantErr: true},
		{name: "route names are case sensitive", input: "Healthz", want: "Healthz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.input)
			if tt.wantErr {
				var vErr *domain.ValidationError
				require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
				assert.Contains(t, vErr.Details, FieldCustomCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_ReservedMessage(t *testing.T) {
	_, err := Validate("healthz")

	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "customCode is reserved", vErr.Details[FieldCustomCode])
}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://example.com",
		"http://example.com/a/b?c=d#e",
		"https://sub.example.co.uk:8443/path",
	}
	for _, u := range valid {
		got, err := ValidateURL(u)
		require.NoError(t, err, u)
		assert.Equal(t, u, got)
	}

	invalid := []string{
		"",
		"not-a-url",
		"example.com",
		"javascript:alert(1)",
		"ftp://example.com/file",
	}
	for _, u := range invalid {
		_, err := ValidateURL(u)
		var vErr *domain.ValidationError
		require.True(t, errors.As(err, &vErr), "expected ValidationError for %q", u)
		assert.Contains(t, vErr.Details, FieldURL)
	}
}
