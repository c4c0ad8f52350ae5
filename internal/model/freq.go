package model

// Freq is a team: a freq number and the set of players currently
// assigned to it. Required freqs persist for the life of the arena
// even with zero members; remembered freqs also persist while empty,
// and no cap on their number is enforced here.
type Freq struct {
	Num               int
	Required          bool
	Remembered        bool
	BalancedAgainst   bool
	Players           map[int]*Player
}

func NewFreq(num int) *Freq {
	return &Freq{Num: num, Players: make(map[int]*Player)}
}

func (f *Freq) Add(p *Player) {
	f.Players[p.ID] = p
}

func (f *Freq) Remove(p *Player) {
	delete(f.Players, p.ID)
}

func (f *Freq) Len() int {
	return len(f.Players)
}

// Empty reports whether the freq currently holds no players.
func (f *Freq) Empty() bool {
	return len(f.Players) == 0
}

// Disbandable reports whether an empty freq should be removed from the
// arena's freq table: not required, not remembered.
func (f *Freq) Disbandable() bool {
	return f.Empty() && !f.Required && !f.Remembered
}
