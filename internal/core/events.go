package core

// QueueFailure describes a delivery attempt that could not be completed.
// Permanent failures have exhausted their attempt budget and will only be
// retained for operator inspection, never retried.
type QueueFailure struct {
	JobKey       string
	PredictionID string
	Attempt      int
	MaxAttempts  int
	Permanent    bool
	Err          error
}

// WorkerFailure describes a job whose execution failed inside a worker,
// after the prediction itself was already settled to ERROR.
type WorkerFailure struct {
	PredictionID string
	WorkerID     int
	Err          error
}

// FailureHooks surface queue-level and worker-level failure events for
// logging and metrics. Hooks observe only; they never mutate Prediction
// state. A zero value is valid and drops all events.
type FailureHooks struct {
	OnQueueFailure  func(QueueFailure)
	OnWorkerFailure func(WorkerFailure)
}

// QueueFailed emits a queue failure event if a hook is installed.
func (h FailureHooks) QueueFailed(f QueueFailure) {
	if h.OnQueueFailure != nil {
		h.OnQueueFailure(f)
	}
}

// WorkerFailed emits a worker failure event if a hook is installed.
func (h FailureHooks) WorkerFailed(f WorkerFailure) {
	if h.OnWorkerFailure != nil {
		h.OnWorkerFailure(f)
	}
}
