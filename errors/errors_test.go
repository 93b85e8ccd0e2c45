package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	errs "github.com/c360studio/semequip/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := errs.MissingField("equipment.ParseRecord", "eqhubProductId")
	wrapped := fmt.Errorf("transform: %w", err)

	assert.ErrorIs(t, wrapped, errs.ErrMissingField)
	assert.NotErrorIs(t, wrapped, errs.ErrUnmappedIdentifier)
	assert.Equal(t, errs.KindMissingField, errs.KindOf(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := errs.Wrap(errs.KindLoad, errors.New("no such file"), "mapping.Load", "read classMapping.ttl")
	assert.Equal(t, "mapping.Load: read classMapping.ttl: no such file", err.Error())

	bare := &errs.Error{Kind: errs.KindParse}
	assert.Equal(t, "parse error", bare.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, errs.Wrap(errs.KindLoad, nil, "op", "msg"))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		invalid   bool
	}{
		{"retrieval", errs.Wrap(errs.KindRetrieval, errors.New("502"), "shape.Fetch", "get"), true, false},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), true, false},
		{"missing field", errs.MissingField("op", "x"), false, true},
		{"unmapped", errs.Unmapped("op", "class", "X1"), false, true},
		{"malformed shape", errs.New(errs.KindMalformedShape, "op", "no type"), false, true},
		{"load", errs.New(errs.KindLoad, "op", "bad"), false, false},
		{"plain", errors.New("boom"), false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, errs.IsTransient(tt.err))
			assert.Equal(t, tt.invalid, errs.IsInvalid(tt.err))
		})
	}
}
