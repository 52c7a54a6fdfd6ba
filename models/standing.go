package models

// Standing is derived from completed matches on demand and never persisted
// as a source of truth.
type Standing struct {
	ParticipantID int    `json:"participant_id"`
	DisplayName   string `json:"display_name,omitempty"`
	Seed          int    `json:"seed"`

	MatchPoints int `json:"match_points"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Draws       int `json:"draws"`
	Byes        int `json:"byes"`

	OpponentMatchWinPct float64 `json:"omw_pct"`
	GameWinPct          float64 `json:"gw_pct"`
	Rank                int     `json:"rank"`
}

// PairKey is a normalized unordered participant pair: LowID < HighID.
type PairKey struct {
	LowID  int `json:"low_id" db:"low_id"`
	HighID int `json:"high_id" db:"high_id"`
}

func NewPairKey(a, b int) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{LowID: a, HighID: b}
}
