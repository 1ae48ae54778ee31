package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateFingerprints(t *testing.T) {
	fps := GenerateFingerprints("Tenaga Nasional", "500.00", "800-111-222")

	assert.Len(t, fps.Exact, 16)
	assert.Len(t, fps.NameAmount, 16)
	assert.Len(t, fps.AmountAccount, 16)
	assert.NotEqual(t, fps.Exact, fps.NameAmount)
	assert.NotEqual(t, fps.NameAmount, fps.AmountAccount)

	// Case, whitespace, and separators do not affect any fingerprint.
	same := GenerateFingerprints("  TENAGA nasional ", "500.00", "800111222")
	assert.Equal(t, fps, same)

	// Changing any field changes the exact fingerprint.
	other := GenerateFingerprints("Tenaga Nasional", "500.01", "800111222")
	assert.NotEqual(t, fps.Exact, other.Exact)
}

func TestRequestTargets(t *testing.T) {
	req := WhatsAppRequest{TargetFields: []string{"bank", "amount"}}

	assert.True(t, req.Targets([]string{"amount", "bank"}))
	assert.False(t, req.Targets([]string{"amount"}))
	assert.False(t, req.Targets([]string{"amount", "date"}))
}
