// Package gfx defines the device-facing features that renderers must implement.
// The frame pipeline drives the graphics device exclusively through these
// interfaces, so it never needs to know which API sits behind them.
package gfx

import "errors"

// ErrSurfaceStale reports that the presentation surface no longer matches
// the display it targets and must be recreated before further use. It is
// the only recoverable device condition: Acquire and Present return it,
// everything else they return is fatal.
var ErrSurfaceStale = errors.New("gfx: presentation surface is stale")

// Releasable defines any device-memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Fence is a host-visible completion token. The device signals it when all
// work submitted with it has finished; it is the only primitive the host
// blocks on.
type Fence interface {
	Releasable

	// Wait blocks until the fence signals. The wait is unbounded, device
	// completion is assumed monotonic per queue.
	Wait() error

	// Reset returns the fence to the unsignalled state. Only safe after
	// a Wait has observed it signalled.
	Reset() error
}

// Semaphore is a device-side-only ordering token. The host never inspects
// it, it only threads it between submissions and presentation.
type Semaphore interface {
	Releasable
}

// CommandBuffer records one frame slot's work. Recording must be bracketed
// by Begin and End, with a single recording in flight per buffer.
type CommandBuffer interface {
	Releasable

	// Begin resets the buffer and opens it for recording.
	Begin() error

	// End closes the buffer; it may be submitted afterwards.
	End() error
}

// SubmitInfo carries one frame's worth of work to the device queue.
type SubmitInfo struct {

	// Commands is the recorded buffer to execute.
	Commands CommandBuffer

	// WaitFor are semaphores the device waits on before the stage that
	// writes the acquired image runs.
	WaitFor []Semaphore

	// Signal are semaphores the device signals when Commands finish.
	Signal []Semaphore

	// Fence signals the host when all of Commands' work completed.
	// Must be unsignalled at submission.
	Fence Fence
}

// Device describes the narrow slice of a graphics device the frame
// pipeline consumes. Implementations own the queues and the allocator.
type Device interface {

	// Submit hands recorded work to the device queue. Asynchronous:
	// completion is reported through info.Fence and info.Signal.
	Submit(info SubmitInfo) error

	// WaitIdle blocks until the device finished all outstanding work.
	WaitIdle() error

	// NewFence creates a fence, optionally created in the signalled
	// state so a first wait on it returns immediately.
	NewFence(signalled bool) (Fence, error)

	// NewSemaphore creates a device ordering token.
	NewSemaphore() (Semaphore, error)

	// NewCommandBuffer allocates a resettable primary work buffer.
	NewCommandBuffer() (CommandBuffer, error)
}

// Surface describes a presentation surface: an ordered sequence of images
// the device renders to and the display consumes.
type Surface interface {

	// Acquire requests the index of the next presentable image. The
	// device signals imageAvailable when the image is truly ready; the
	// host does not block here. Returns ErrSurfaceStale when the surface
	// no longer matches the display and must be recreated.
	Acquire(imageAvailable Semaphore) (int, error)

	// Present queues the image for display once wait's producer has
	// finished. Returns ErrSurfaceStale when the surface went stale;
	// the image may still have been shown.
	Present(wait Semaphore, imageIndex int) error

	// Recreate rebuilds the image sequence. Callers must confirm the
	// device is idle with respect to the old images first.
	Recreate() error

	// ImageCount reports the current number of presentable images.
	ImageCount() int
}
