package config

import "time"

// PollInterval returns the queue poll interval as a duration.
func (w Workflow) PollInterval() time.Duration {
	return time.Duration(w.QueuePollInterval) * time.Second
}

// RetryInterval returns the backoff applied after queue errors.
func (w Workflow) RetryInterval() time.Duration {
	return time.Duration(w.ErrorRetryInterval) * time.Second
}

// HeartbeatEvery returns the heartbeat refresh interval as a duration.
func (w Workflow) HeartbeatEvery() time.Duration {
	return time.Duration(w.HeartbeatInterval) * time.Second
}

// HeartbeatExpiry returns the stale-lease cutoff as a duration.
func (w Workflow) HeartbeatExpiry() time.Duration {
	return time.Duration(w.HeartbeatTimeout) * time.Second
}

// ProcessingDeadline returns the per-recording analysis timeout as a duration.
func (w Workflow) ProcessingDeadline() time.Duration {
	return time.Duration(w.ProcessingTimeout) * time.Second
}
