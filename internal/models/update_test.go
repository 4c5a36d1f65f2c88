package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusPtr(s FindingStatus) *FindingStatus { return &s }
func strPtr(s string) *string                  { return &s }

func TestFindingUpdateValidate(t *testing.T) {
	t.Run("accepts vocabulary statuses", func(t *testing.T) {
		for _, s := range []FindingStatus{FindingStatusActive, FindingStatusResolved, FindingStatusFalsePositive, FindingStatusIgnored} {
			u := FindingUpdate{Status: statusPtr(s)}
			assert.NoError(t, u.Validate())
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		u := FindingUpdate{Status: statusPtr(FindingStatus("totally_made_up"))}
		assert.Error(t, u.Validate())
	})

	t.Run("rejects oversized note", func(t *testing.T) {
		long := make([]byte, 2001)
		for i := range long {
			long[i] = 'a'
		}
		u := FindingUpdate{ResolutionNote: strPtr(string(long))}
		assert.Error(t, u.Validate())
	})
}

func TestFindingUpdateApplyTo(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	newFinding := func() *Finding {
		return &Finding{
			ID:            uuid.New(),
			FilePath:      "src/config.py",
			LineNumber:    42,
			MatchTextHash: "deadbeef",
			Status:        FindingStatusActive,
		}
	}

	t.Run("resolving stamps resolution metadata", func(t *testing.T) {
		f := newFinding()
		who := uuid.New()
		u := FindingUpdate{
			Status:         statusPtr(FindingStatusResolved),
			ResolutionNote: strPtr("rotated the key"),
			ResolvedBy:     &who,
		}
		require.NoError(t, u.Validate())
		u.ApplyTo(f, now)

		assert.Equal(t, FindingStatusResolved, f.Status)
		require.NotNil(t, f.ResolvedAt)
		assert.Equal(t, now, *f.ResolvedAt)
		assert.Equal(t, &who, f.ResolvedBy)
		assert.Equal(t, "rotated the key", *f.ResolutionNote)
	})

	t.Run("reopening clears resolution metadata", func(t *testing.T) {
		f := newFinding()
		u := FindingUpdate{Status: statusPtr(FindingStatusIgnored)}
		u.ApplyTo(f, now)
		require.NotNil(t, f.ResolvedAt)

		u = FindingUpdate{Status: statusPtr(FindingStatusActive)}
		u.ApplyTo(f, now.Add(time.Hour))
		assert.Nil(t, f.ResolvedAt)
		assert.Nil(t, f.ResolvedBy)
	})

	t.Run("identity fields stay untouched", func(t *testing.T) {
		f := newFinding()
		u := FindingUpdate{
			Status:        statusPtr(FindingStatusResolved),
			FixedInCommit: strPtr("abc1234"),
		}
		u.ApplyTo(f, now)

		assert.Equal(t, "src/config.py", f.FilePath)
		assert.Equal(t, 42, f.LineNumber)
		assert.Equal(t, "deadbeef", f.MatchTextHash)
		assert.Equal(t, "abc1234", *f.FixedInCommit)
	})
}

func TestValidSecretType(t *testing.T) {
	assert.True(t, ValidSecretType("api_key"))
	assert.True(t, ValidSecretType("GitHub_Token"))
	assert.False(t, ValidSecretType("totally_made_up_type"))
	assert.False(t, ValidSecretType(""))
}
