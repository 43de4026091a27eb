package ability

import (
	"time"

	"github.com/l1jgo/encounter/internal/attr"
	"github.com/l1jgo/encounter/internal/clock"
)

// CooldownGate checks and records an ability's last activation on the
// owner's attribute store. Ready never writes; Commit is a separate step so
// a failed range check does not consume the cooldown.
type CooldownGate struct {
	Key string
}

func CooldownKey(code string) string {
	return "ability." + code + ".last_ms"
}

// Ready reports whether cooldown has elapsed since the recorded activation.
// No record, or a record from the future (written by an earlier process
// whose clock had run further), counts as never activated.
func (g CooldownGate) Ready(s *attr.Store, cooldown time.Duration, now clock.ProcessMs) bool {
	if cooldown <= 0 || !s.Has(g.Key) {
		return true
	}
	last := clock.ProcessMs(s.GetLong(g.Key, 0))
	if last.After(now) {
		return true
	}
	return now.Sub(last) >= cooldown
}

func (g CooldownGate) Commit(s *attr.Store, now clock.ProcessMs) {
	s.SetLong(g.Key, now.Int64())
}
