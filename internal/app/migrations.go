package app

import "serotonyl.ru/gaqt-backend/internal/db/postgres"

// migrations — SQL-миграции, встроенные в код для упрощения деплоя.
var migrations = []postgres.Migration{
	{Version: 1, SQL: migration001Users},
	{Version: 2, SQL: migration002Quests},
	{Version: 3, SQL: migration003DailyQuests},
	{Version: 4, SQL: migration004Referrals},
	{Version: 5, SQL: migration005Achievements},
	{Version: 6, SQL: migration006Admin},
}

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    telegram_id BIGINT NOT NULL,
    username VARCHAR(255) NOT NULL DEFAULT '',
    first_name VARCHAR(255) NOT NULL DEFAULT '',
    last_name VARCHAR(255) NOT NULL DEFAULT '',
    photo_url TEXT NOT NULL DEFAULT '',
    ton_wallet VARCHAR(128),
    energy INTEGER NOT NULL DEFAULT 0 CHECK (energy BETWEEN 0 AND 1000),
    points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
    level INTEGER NOT NULL DEFAULT 1,
    referral_code VARCHAR(32) NOT NULL,
    referral_count INTEGER NOT NULL DEFAULT 0,
    last_sync TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT users_telegram_id_key UNIQUE (telegram_id),
    CONSTRAINT users_referral_code_key UNIQUE (referral_code)
);
CREATE INDEX IF NOT EXISTS idx_users_points ON users(points DESC, created_at ASC);
CREATE INDEX IF NOT EXISTS idx_users_regen ON users(last_sync) WHERE energy < 1000;
`

var migration002Quests = `
CREATE TABLE IF NOT EXISTS quests (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    type VARCHAR(16) NOT NULL CHECK (type IN ('affiliate', 'iap', 'social', 'ton')),
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    reward_points BIGINT NOT NULL DEFAULT 0 CHECK (reward_points >= 0),
    reward_energy INTEGER NOT NULL DEFAULT 0 CHECK (reward_energy >= 0),
    affiliate_url TEXT,
    stars_price INTEGER,
    icon_emoji VARCHAR(16) NOT NULL DEFAULT '🎯',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    order_index INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_quests_active ON quests(order_index) WHERE is_active;

CREATE TABLE IF NOT EXISTS user_quests (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    quest_id UUID NOT NULL REFERENCES quests(id) ON DELETE CASCADE,
    status VARCHAR(16) NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'in_progress', 'completed')),
    started_at TIMESTAMPTZ,
    completed_at TIMESTAMPTZ,
    rewarded_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, quest_id)
);
`

var migration003DailyQuests = `
CREATE TABLE IF NOT EXISTS daily_quests (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    quest_id UUID NOT NULL REFERENCES quests(id) ON DELETE CASCADE,
    date DATE NOT NULL,
    multiplier NUMERIC(6, 2) NOT NULL DEFAULT 2.0 CHECK (multiplier >= 1),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (quest_id, date)
);
CREATE INDEX IF NOT EXISTS idx_daily_quests_date ON daily_quests(date);

CREATE TABLE IF NOT EXISTS daily_quest_completions (
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    quest_id UUID NOT NULL REFERENCES quests(id) ON DELETE CASCADE,
    date DATE NOT NULL,
    completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, quest_id, date)
);
CREATE INDEX IF NOT EXISTS idx_daily_completions_user ON daily_quest_completions(user_id, date DESC);
`

var migration004Referrals = `
CREATE TABLE IF NOT EXISTS referrals (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    referrer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    referred_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    referral_code VARCHAR(32) NOT NULL,
    reward_claimed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT referrals_referred_id_key UNIQUE (referred_id),
    CHECK (referrer_id <> referred_id)
);
CREATE INDEX IF NOT EXISTS idx_referrals_referrer ON referrals(referrer_id, created_at DESC);
`

var migration005Achievements = `
CREATE TABLE IF NOT EXISTS user_achievements (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    achievement_type VARCHAR(64) NOT NULL,
    achievement_name VARCHAR(255) NOT NULL,
    icon_emoji VARCHAR(16) NOT NULL DEFAULT '🏆',
    earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, achievement_type)
);
`

var migration006Admin = `
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    client_key VARCHAR(64) NOT NULL,
    attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_admin_attempts_client ON admin_login_attempts(client_key, attempt_time);
`
