package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validProfile = `
account:
  weights:
    company: 40
    website: 15
  penalties:
    conflicting_website_penalty: 40
  minimum_final_score: 70
contact:
  weights:
    last_name: 35
blocking:
  top_n: 10
  min_similarity: 0.2
`

func TestLoadScoring(t *testing.T) {
	t.Run("should parse a valid profile", func(t *testing.T) {
		account, contact, blockCfg, err := LoadScoring(writeProfile(t, validProfile))
		require.NoError(t, err)

		assert.Equal(t, 40.0, account.Weight(models.FieldCompany))
		assert.Equal(t, 40.0, account.Penalty(models.PenaltyConflictingWebsite))
		assert.Equal(t, 70.0, account.MinScore)
		assert.Equal(t, 35.0, contact.Weight(models.FieldLastName))
		assert.Equal(t, 10, blockCfg.TopN)
		assert.Equal(t, 0.2, blockCfg.MinSimilarity)
	})

	t.Run("should default the contact threshold", func(t *testing.T) {
		_, contact, _, err := LoadScoring(writeProfile(t, validProfile))
		require.NoError(t, err)
		assert.Equal(t, float64(models.DefaultContactMinScore), contact.MinScore)
	})

	t.Run("should read the contact threshold from minimum_contact_score", func(t *testing.T) {
		profile := `
account:
  weights:
    company: 40
  minimum_final_score: 70
contact:
  weights:
    last_name: 35
  minimum_contact_score: 55
`
		_, contact, _, err := LoadScoring(writeProfile(t, profile))
		require.NoError(t, err)
		assert.Equal(t, 55.0, contact.MinScore)
	})

	t.Run("should default the blocking settings when omitted", func(t *testing.T) {
		profile := `
account:
  weights:
    company: 40
  minimum_final_score: 70
`
		_, _, blockCfg, err := LoadScoring(writeProfile(t, profile))
		require.NoError(t, err)
		assert.Equal(t, 25, blockCfg.TopN)
		assert.Equal(t, 0.1, blockCfg.MinSimilarity)
	})

	t.Run("should reject a missing account threshold", func(t *testing.T) {
		profile := `
account:
  weights:
    company: 40
`
		_, _, _, err := LoadScoring(writeProfile(t, profile))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "minimum_final_score")
	})

	t.Run("should reject empty account weights", func(t *testing.T) {
		profile := `
account:
  minimum_final_score: 70
`
		_, _, _, err := LoadScoring(writeProfile(t, profile))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "weights")
	})

	t.Run("should reject a negative weight", func(t *testing.T) {
		profile := `
account:
  weights:
    company: -5
  minimum_final_score: 70
`
		_, _, _, err := LoadScoring(writeProfile(t, profile))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "negative")
	})

	t.Run("should reject a missing file", func(t *testing.T) {
		_, _, _, err := LoadScoring(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("should reject malformed yaml", func(t *testing.T) {
		_, _, _, err := LoadScoring(writeProfile(t, "account: [not a map"))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("should require the database path", func(t *testing.T) {
		t.Setenv("DB_PATH", "")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_PATH")
	})

	t.Run("should apply defaults", func(t *testing.T) {
		t.Setenv("DB_PATH", "fern.db")
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "fern-api", cfg.AppName)
		assert.Equal(t, 3004, cfg.Port)
		assert.Equal(t, "scoring.yaml", cfg.ScoringConfigPath)
	})

	t.Run("should read overrides from the environment", func(t *testing.T) {
		t.Setenv("DB_PATH", "fern.db")
		t.Setenv("PORT", "9000")
		t.Setenv("PRETTY_LOGS", "true")
		t.Setenv("HTTP_SERVER_READ_TIMEOUT", "5s")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Port)
		assert.True(t, cfg.PrettyLogs)
		assert.Equal(t, "5s", cfg.HTTPServerReadTimeout.String())
	})
}
