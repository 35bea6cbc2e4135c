package session

import "sync"

// IdGen hands out the smallest free id in [min, max).
type IdGen struct {
	min, max int
	used     map[int]bool
	mutex    sync.Mutex
}

func NewIdGen(min, max int) *IdGen {
	return &IdGen{min: min, max: max, used: make(map[int]bool)}
}

// Acquire reserves an id. ok is false when every id is taken.
func (g *IdGen) Acquire() (id int, ok bool) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	for id := g.min; id < g.max; id++ {
		if !g.used[id] {
			g.used[id] = true
			return id, true
		}
	}
	return 0, false
}

// Release returns id to the pool. Unknown ids are ignored.
func (g *IdGen) Release(id int) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	delete(g.used, id)
}

// InUse is the number of ids currently held.
func (g *IdGen) InUse() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.used)
}
