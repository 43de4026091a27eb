package data

// TableHolder owns the ability table currently in effect. Swap is only
// called from the game loop, between ticks.
type TableHolder struct {
	current *AbilityTable
	version int
}

func NewTableHolder(t *AbilityTable) *TableHolder {
	return &TableHolder{current: t, version: 1}
}

func (h *TableHolder) Current() *AbilityTable { return h.current }

// Version increases on every Swap.
func (h *TableHolder) Version() int { return h.version }

func (h *TableHolder) Swap(t *AbilityTable) {
	h.current = t
	h.version++
}
