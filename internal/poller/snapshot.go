package poller

import (
	"math/big"

	"launchScope/internal/curve"
	"launchScope/internal/model"
)

// Snapshot is the produced view of one market's price feed. Staleness
// and change are derived at read time, never stored.
type Snapshot struct {
	State    State
	Current  *model.PriceSample
	Previous *model.PriceSample

	// HasData distinguishes "no data yet" from "data fetch failed":
	// a Disconnected poller with HasData true still has a last good
	// sample, just possibly a stale one.
	HasData bool
	Stale   bool

	Direction     Direction
	ChangeBps     *big.Int // magnitude of the change in basis points
	ChangePercent *big.Int // magnitude in whole percent

	Progress uint64
	Migrated bool
	Retries  int
	LastErr  error
}

// Snapshot returns the current feed view.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		State:    p.state,
		Current:  p.current,
		Previous: p.previous,
		HasData:  p.current != nil,
		Migrated: p.migrated,
		Retries:  p.retries,
		LastErr:  p.lastErr,
	}

	if p.current != nil {
		snap.Stale = p.now().Sub(p.current.ObservedAt) > p.cfg.StaleThreshold
		snap.Progress = curve.Progress(p.current.TokensSold, p.maxSupply)
	}

	snap.Direction, snap.ChangeBps, snap.ChangePercent = Change(p.current, p.previous)
	return snap
}

// Change derives direction and magnitude from the current and previous
// samples. Prices are unsigned, so the magnitude is computed as the
// larger minus the smaller and the sign is carried by the direction.
// With no previous sample the change is unchanged/0.
func Change(current, previous *model.PriceSample) (Direction, *big.Int, *big.Int) {
	zero := big.NewInt(0)
	if current == nil || previous == nil || current.Price == nil || previous.Price == nil {
		return DirectionUnchanged, zero, zero
	}

	cmp := current.Price.Cmp(previous.Price)
	if cmp == 0 {
		return DirectionUnchanged, zero, zero
	}

	direction := DirectionUp
	larger, smaller := current.Price, previous.Price
	if cmp < 0 {
		direction = DirectionDown
		larger, smaller = previous.Price, current.Price
	}

	if previous.Price.Sign() == 0 {
		// no baseline to express the change against
		return direction, zero, zero
	}

	bps := new(big.Int).Sub(larger, smaller)
	bps.Mul(bps, big.NewInt(10_000))
	bps.Div(bps, previous.Price)
	percent := new(big.Int).Div(bps, big.NewInt(100))
	return direction, bps, percent
}
