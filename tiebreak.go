package badezimmer

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// baseInstanceName strips a trailing "-N" numeric suffix so repeated
// renames do not accumulate (spec.md §4.4 tiebreaking note).
func baseInstanceName(name string) string {
	idx := strings.LastIndex(name, "-")
	if idx < 0 {
		return name
	}
	suffix := name[idx+1:]
	if suffix == "" {
		return name
	}
	if _, err := strconv.Atoi(suffix); err != nil {
		return name
	}
	return name[:idx]
}

// tiebreak resolves instance-name conflicts for d in place, per the
// sleep-probe-rename protocol in spec.md §4.4. It returns ErrNonUniqueName
// if a conflict is found and d.AllowNameChange is false.
func (e *Engine) tiebreak(ctx context.Context, d *ServiceDescriptor) error {
	if err := sleepCtx(ctx, e.randomDuration(150*time.Millisecond, 250*time.Millisecond)); err != nil {
		return err
	}

	base := baseInstanceName(d.InstanceName)
	nextInstanceNum := 2
	attempt := 0

	for attempt < e.config.tiebreakingAttempts {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if e.cache.HasNonExpiredPointer(d.ServiceType, d.DomainName()) {
			if !d.AllowNameChange {
				return ErrNonUniqueName
			}
			d.InstanceName = base + "-" + strconv.Itoa(nextInstanceNum)
			nextInstanceNum++
			attempt = 0
			continue
		}

		e.sendQuery(d.ServiceType)

		drift := time.Duration(e.randFloat64() * float64(e.config.tiebreakingMaxDriftMS))
		if err := sleepCtx(ctx, e.config.intervalBetweenTiebreakingMS+drift); err != nil {
			return err
		}
		attempt++
	}

	return nil
}

// randomDuration returns a uniformly random duration in [lo, hi].
func (e *Engine) randomDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	span := hi - lo
	return lo + time.Duration(e.randInt63n(int64(span)+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
