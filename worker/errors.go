package worker

import "errors"

// ErrPoolClosed is returned by Submit after Close has been called.
var ErrPoolClosed = errors.New("worker: pool closed")

// ErrQueueFull is returned by TrySubmit when the job queue has no free slot.
var ErrQueueFull = errors.New("worker: queue full")
