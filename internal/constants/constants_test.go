package constants

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutConstants(t *testing.T) {
	t.Run("DefaultMaxWorkHours time-boxes a full working day", func(t *testing.T) {
		assert.InDelta(t, 8.0, DefaultMaxWorkHours, 0.001)
		assert.Greater(t, DefaultMaxWorkHours, 0.0, "zero would abandon every workflow immediately")
	})

	t.Run("DefaultStatusInterval is frequent enough to be useful", func(t *testing.T) {
		assert.Equal(t, 30*time.Second, DefaultStatusInterval)
		assert.LessOrEqual(t, DefaultStatusInterval, time.Minute, "status should refresh at least once a minute")
	})

	t.Run("DefaultIdlePollInterval backs off between assignment polls", func(t *testing.T) {
		assert.Equal(t, 15*time.Second, DefaultIdlePollInterval)
		assert.Greater(t, DefaultIdlePollInterval, time.Second, "should not hammer the host while idle")
	})

	t.Run("DefaultReviewPollInterval is shorter than idle polling", func(t *testing.T) {
		assert.Equal(t, 10*time.Second, DefaultReviewPollInterval)
		assert.LessOrEqual(t, DefaultReviewPollInterval, DefaultIdlePollInterval, "reviews resolve faster than new work appears")
	})
}

func TestWorkflowPolicyConstants(t *testing.T) {
	t.Run("DefaultResumeCompletionPercent credits prior work", func(t *testing.T) {
		assert.InDelta(t, 50.0, DefaultResumeCompletionPercent, 0.001)
		assert.Greater(t, DefaultResumeCompletionPercent, 0.0, "resuming must never reset progress to zero")
		assert.Less(t, DefaultResumeCompletionPercent, 100.0, "resuming must not mark work complete")
	})

	t.Run("DefaultSlotCapacity allows concurrent workflows", func(t *testing.T) {
		assert.Equal(t, 4, DefaultSlotCapacity)
		assert.GreaterOrEqual(t, DefaultSlotCapacity, 1, "at least one slot must exist")
	})
}

func TestFileAndDirectoryConstants(t *testing.T) {
	t.Run("home directory is hidden", func(t *testing.T) {
		assert.Equal(t, ".gaffer", GafferHome)
	})

	t.Run("checkpoint and audit files are distinct", func(t *testing.T) {
		assert.Equal(t, "checkpoint.json", CheckpointFileName)
		assert.Equal(t, "audit.db", AuditDBFileName)
		assert.NotEqual(t, CheckpointFileName, AuditDBFileName)
	})

	t.Run("config names separate global from project scope", func(t *testing.T) {
		assert.Equal(t, "config.yaml", GlobalConfigName)
		assert.Equal(t, ".gaffer.yaml", ProjectConfigName)
	})
}

func TestBranchPrefixes(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{name: "fix prefix", prefix: BranchPrefixFix},
		{name: "feat prefix", prefix: BranchPrefixFeat},
		{name: "chore prefix", prefix: BranchPrefixChore},
		{name: "docs prefix", prefix: BranchPrefixDocs},
		{name: "test prefix", prefix: BranchPrefixTest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.prefix)
			assert.Equal(t, byte('/'), tt.prefix[len(tt.prefix)-1], "branch prefixes must end with a slash")
		})
	}
}
