package postgres

import (
	"context"
	"fmt"

	"luvrix-giveaway-engine/internal/common/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS giveaways (
	id UUID PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	prize_details TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ,
	status TEXT NOT NULL CHECK (status IN ('draft', 'active', 'winner_selected', 'ended')),
	target_participants INTEGER NOT NULL DEFAULT 0,
	required_points INTEGER NOT NULL DEFAULT 0 CHECK (required_points >= 0),
	invite_points_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	invite_points_per_referral INTEGER NOT NULL DEFAULT 0,
	max_extensions INTEGER NOT NULL DEFAULT 0 CHECK (max_extensions >= -1),
	extension_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_giveaways_status ON giveaways(status, start_date DESC);

CREATE TABLE IF NOT EXISTS giveaway_tasks (
	id UUID PRIMARY KEY,
	giveaway_id UUID NOT NULL REFERENCES giveaways(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	points INTEGER NOT NULL CHECK (points > 0),
	required BOOLEAN NOT NULL DEFAULT FALSE,
	position INTEGER NOT NULL DEFAULT 0,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_giveaway_tasks_giveaway ON giveaway_tasks(giveaway_id, position);

CREATE TABLE IF NOT EXISTS giveaway_participants (
	giveaway_id UUID NOT NULL REFERENCES giveaways(id) ON DELETE CASCADE,
	user_id BIGINT NOT NULL,
	joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
	invite_code TEXT NOT NULL UNIQUE,
	invite_count INTEGER NOT NULL DEFAULT 0 CHECK (invite_count >= 0),
	invited_by BIGINT,
	status TEXT NOT NULL DEFAULT 'participant' CHECK (status IN ('participant', 'eligible', 'winner')),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (giveaway_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_giveaway_participants_pool
	ON giveaway_participants(giveaway_id, status, joined_at, user_id);

CREATE TABLE IF NOT EXISTS giveaway_participant_tasks (
	giveaway_id UUID NOT NULL,
	user_id BIGINT NOT NULL,
	task_id UUID NOT NULL REFERENCES giveaway_tasks(id) ON DELETE CASCADE,
	completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (giveaway_id, user_id, task_id),
	FOREIGN KEY (giveaway_id, user_id)
		REFERENCES giveaway_participants(giveaway_id, user_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS giveaway_referrals (
	giveaway_id UUID NOT NULL REFERENCES giveaways(id) ON DELETE CASCADE,
	referred_user_id BIGINT NOT NULL,
	inviter_user_id BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (giveaway_id, referred_user_id)
);

CREATE TABLE IF NOT EXISTS giveaway_selections (
	id UUID PRIMARY KEY,
	giveaway_id UUID NOT NULL UNIQUE REFERENCES giveaways(id),
	winner_user_id BIGINT NOT NULL,
	method TEXT NOT NULL CHECK (method IN ('random', 'manual')),
	selected_by BIGINT,
	selected_at TIMESTAMPTZ NOT NULL,
	eligible_pool BIGINT[] NOT NULL
);

CREATE TABLE IF NOT EXISTS giveaway_supports (
	id UUID PRIMARY KEY,
	giveaway_id UUID NOT NULL REFERENCES giveaways(id),
	user_id BIGINT,
	amount BIGINT NOT NULL CHECK (amount >= 1),
	donor_name TEXT NOT NULL DEFAULT '',
	is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
	message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_giveaway_supports_giveaway ON giveaway_supports(giveaway_id, created_at DESC);

CREATE OR REPLACE FUNCTION forbid_append_only_mutation() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION '% is append-only', TG_TABLE_NAME;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS giveaway_selections_append_only ON giveaway_selections;
CREATE TRIGGER giveaway_selections_append_only
	BEFORE UPDATE OR DELETE ON giveaway_selections
	FOR EACH ROW EXECUTE FUNCTION forbid_append_only_mutation();

DROP TRIGGER IF EXISTS giveaway_supports_append_only ON giveaway_supports;
CREATE TRIGGER giveaway_supports_append_only
	BEFORE UPDATE OR DELETE ON giveaway_supports
	FOR EACH ROW EXECUTE FUNCTION forbid_append_only_mutation();
`

// Migrate applies the schema. Every statement is idempotent.
func (c *Client) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info().Msg("Database schema applied")
	return nil
}
