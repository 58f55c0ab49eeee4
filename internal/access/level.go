package access

// Level is the permission a caregiver holds on a patient profile. Levels are
// totally ordered: read < write < admin. A higher level covers everything a
// lower one allows.
type Level string

const (
	LevelRead  Level = "read"
	LevelWrite Level = "write"
	LevelAdmin Level = "admin"
)

var levelRank = map[Level]int{
	LevelRead:  1,
	LevelWrite: 2,
	LevelAdmin: 3,
}

func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// Covers reports whether a grant at level l satisfies the required level.
func (l Level) Covers(required Level) bool {
	return levelRank[l] >= levelRank[required]
}
