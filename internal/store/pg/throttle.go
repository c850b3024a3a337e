package pg

import (
	"context"
	"database/sql"

	"bookvault.org/internal/throttle"
)

// throttleGate is a fixed-window counter stored in PostgreSQL. The window
// check and increment run in a single upsert so concurrent requests cannot
// under-count.
type throttleGate struct {
	db    *sql.DB
	rates map[string]throttle.Rate
}

var _ throttle.Gate = (*throttleGate)(nil)

func (g *throttleGate) Admit(ctx context.Context, scope, actorKey string) (bool, error) {
	rate, ok := g.rates[scope]
	if !ok {
		return false, throttle.ErrUnknownScope
	}

	const q = `
insert into throttle_counters (scope, actor_key, window_start, count)
values ($1, $2, now(), 1)
on conflict (scope, actor_key) do update
set
  count = case when now() - throttle_counters.window_start >= make_interval(secs => $3) then 1 else throttle_counters.count + 1 end,
  window_start = case when now() - throttle_counters.window_start >= make_interval(secs => $3) then now() else throttle_counters.window_start end
returning count`

	var count int
	if err := g.db.QueryRowContext(ctx, q, scope, actorKey, rate.Window.Seconds()).Scan(&count); err != nil {
		return false, err
	}
	return count <= rate.Max, nil
}
