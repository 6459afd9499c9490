package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAchievementText(t *testing.T) {
	assert.Equal(t, "🎯 Achievement unlocked: First Steps\n+500 points", AchievementText("🎯", "First Steps", 500))
}

func TestReferralText(t *testing.T) {
	assert.Equal(t, "🤝 Ivan joined with your referral code!\n+1 000 points, +100 energy", ReferralText("Ivan", 1000, 100))
	assert.Contains(t, ReferralText("", 1000, 100), "A friend joined")
}
