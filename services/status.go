package services

import (
	"maps"

	"github.com/lborres/rota/core"
)

// Status reports the queue without changing it. Cooldowns that have
// elapsed show as available but are only promoted by Next.
func (q *RotationQueue) Status() core.QueueStatus {
	q.mu.Lock()
	state := q.state
	cursor := q.cursor
	cooldowns := maps.Clone(q.cooldowns)
	now := q.config.Now()
	q.mu.Unlock()

	status := core.QueueStatus{
		Total:          len(state.ids),
		CursorPosition: cursor,
		Accounts:       make([]core.AccountStatus, 0, len(state.ids)),
	}

	for _, id := range state.ids {
		entry := core.AccountStatus{
			Identifier: id,
			State:      core.StateAvailable,
		}
		if until, ok := cooldowns[id]; ok && now.Before(until) {
			entry.State = core.StateCooling
			entry.CooldownRemaining = until.Sub(now)
			status.CoolingCount++
		} else {
			status.AvailableCount++
		}

		if account, err := q.store.Get(id); err == nil {
			redacted := account.Redact()
			entry.HasPassword = redacted.HasPassword
			entry.HasToken = redacted.HasToken
			entry.TokenPreview = redacted.TokenPreview
		}

		status.Accounts = append(status.Accounts, entry)
	}

	return status
}
