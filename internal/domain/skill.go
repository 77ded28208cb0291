package domain

import "github.com/google/uuid"

// OverallSkill is the skill every delta is credited to in addition to any
// classified sub-skill.
const OverallSkill = "Augeo"

// Experience units per event kind. The ledger itself is agnostic to these;
// only the processor turns kinds into deltas.
const (
	TweetExperience    int64 = 30
	RetweetExperience  int64 = 25
	MentionExperience  int64 = 20
	FavoriteExperience int64 = 15
)

// UserSkill is a cumulative experience counter per user per skill.
type UserSkill struct {
	UserID     uuid.UUID `db:"user_id"`
	Skill      string    `db:"skill"`
	Experience int64     `db:"experience"`
}

// SkillStanding is one leaderboard row for a skill.
type SkillStanding struct {
	UserID     uuid.UUID `db:"user_id"`
	Username   string    `db:"username"`
	ScreenName string    `db:"screen_name"`
	Experience int64     `db:"experience"`
}
