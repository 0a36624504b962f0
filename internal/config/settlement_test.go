package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadSettlementPolicyDefaultsWhenFileMissing(t *testing.T) {
	holder, err := loadSettlementPolicy(zap.NewNop(), t.TempDir())
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, 3, policy.Sequence.MaxAttempts)
	assert.Equal(t, 3, policy.Cutoff.MaxAttempts)
	assert.Equal(t, 3, policy.Settlement.MaxAttempts)
	assert.Equal(t, 30*time.Second, policy.Settlement.LockTTL)
	assert.Equal(t, "uncategorized", policy.Settlement.UncategorizedLabel)
	assert.True(t, policy.Payment.AllowNegativeBalance)
}

func TestLoadSettlementPolicyFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`policy:
  sequence:
    maxAttempts: 5
    prefixes:
      sales_order: SOX
  cutoff:
    maxAttempts: 7
  settlement:
    lockTTL: 10s
  payment:
    allowNegativeBalance: false
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settlement.yml"), content, 0o600))

	holder, err := loadSettlementPolicy(zap.NewNop(), dir)
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, 5, policy.Sequence.MaxAttempts)
	assert.Equal(t, "SOX", policy.Sequence.Prefixes["sales_order"])
	assert.Equal(t, 7, policy.Cutoff.MaxAttempts)
	assert.Equal(t, 3, policy.Order.MaxAttempts)
	assert.Equal(t, 10*time.Second, policy.Settlement.LockTTL)
	assert.Equal(t, 3, policy.Settlement.MaxAttempts)
	assert.False(t, policy.Payment.AllowNegativeBalance)
}

func TestLoadSettlementPolicyRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`policy:
  settlement:
    maxAttempts: 0
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settlement.yml"), content, 0o600))

	_, err := loadSettlementPolicy(zap.NewNop(), dir)
	require.Error(t, err)
}

func TestValidateSettlementPolicyCutoffAttempts(t *testing.T) {
	policy := DefaultSettlementPolicy()
	policy.Cutoff.MaxAttempts = 0
	assert.EqualError(t, ValidateSettlementPolicy(policy), "policy.cutoff.maxAttempts must be at least 1")
}

func TestNilHolderReturnsDefaults(t *testing.T) {
	var holder *SettlementPolicyHolder
	assert.Equal(t, DefaultSettlementPolicy(), holder.Get())
}

func TestValidateSettlementPolicyPrefix(t *testing.T) {
	policy := DefaultSettlementPolicy()
	policy.Sequence.Prefixes = map[string]string{"sales_order": "S-O"}
	assert.Error(t, ValidateSettlementPolicy(policy))
}

func TestConfigLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, Config{Timezone: "Nowhere/Invalid"}.Location())
	assert.Equal(t, "Asia/Jakarta", Config{Timezone: "Asia/Jakarta"}.Location().String())
}
