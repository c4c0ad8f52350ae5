package billing

import (
	"context"

	"github.com/opensubspace/zonecore/internal/db"
	"github.com/opensubspace/zonecore/internal/protocol"
)

// DBScoreStore adapts *db.DB to the ScoreStore interface, translating
// between the wire-shaped protocol.PlayerScoreBlock and the
// persistence layer's db.PlayerScore.
type DBScoreStore struct {
	DB *db.DB
}

func (s DBScoreStore) SavePlayerScore(ctx context.Context, playerID, arenaGroup string, score protocol.PlayerScoreBlock) error {
	return s.DB.SavePlayerScore(ctx, db.PlayerScore{
		PlayerID:   playerID,
		ArenaGroup: arenaGroup,
		Kills:      score.Kills,
		Deaths:     score.Deaths,
		Flags:      score.Flags,
		KillPoints: score.KillPoints,
		FlagPoints: score.FlagPoints,
	})
}

func (s DBScoreStore) LoadPlayerScore(ctx context.Context, playerID, arenaGroup string) (*protocol.PlayerScoreBlock, bool, error) {
	row, err := s.DB.LoadPlayerScore(ctx, playerID, arenaGroup)
	if err != nil {
		return nil, false, err
	}
	if row == nil {
		return nil, false, nil
	}
	return &protocol.PlayerScoreBlock{
		Kills:      row.Kills,
		Deaths:     row.Deaths,
		Flags:      row.Flags,
		KillPoints: row.KillPoints,
		FlagPoints: row.FlagPoints,
	}, true, nil
}

func (s DBScoreStore) ResetArenaGroup(ctx context.Context, arenaGroup string) error {
	return s.DB.ResetArenaGroup(ctx, arenaGroup)
}
