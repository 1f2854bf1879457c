// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/berylllium/lise/gfx"
)

// DefaultFramesInFlight is the slot count used when the configuration
// does not request one. Two slots let the host record a frame while the
// device works on the previous one.
const DefaultFramesInFlight = 2

// RecordFunc records one frame's work into commands. The buffer is already
// open for recording and is closed by the pipeline afterwards. imageIndex
// identifies the surface image the work will write to.
type RecordFunc func(commands gfx.CommandBuffer, imageIndex int) error

// frameSlot owns one in-flight frame's worth of recordable work and its
// synchronization primitives. Slots are revisited every FramesInFlight
// frames and may only be re-recorded after fence signalled for the
// previous visit.
type frameSlot struct {
	imageAvailable gfx.Semaphore
	queueComplete  gfx.Semaphore
	fence          gfx.Fence
	commands       gfx.CommandBuffer
}

// NewFramePipeline creates a frame pipeline over device and surface with
// framesInFlight slots (DefaultFramesInFlight when not positive). Slot
// fences start signalled so the first wait on each returns immediately.
func NewFramePipeline(device gfx.Device, surface gfx.Surface, framesInFlight int) (*FramePipeline, error) {
	if framesInFlight < 1 {
		framesInFlight = DefaultFramesInFlight
	}

	p := &FramePipeline{
		device:      device,
		surface:     surface,
		slots:       make([]frameSlot, framesInFlight),
		imageFences: make([]gfx.Fence, surface.ImageCount()),
	}

	for i := range p.slots {
		slot := &p.slots[i]
		var err error
		if slot.imageAvailable, err = device.NewSemaphore(); err != nil {
			p.release()
			return nil, fmt.Errorf("frame slot %d: %s", i, err.Error())
		}
		if slot.queueComplete, err = device.NewSemaphore(); err != nil {
			p.release()
			return nil, fmt.Errorf("frame slot %d: %s", i, err.Error())
		}
		if slot.fence, err = device.NewFence(true); err != nil {
			p.release()
			return nil, fmt.Errorf("frame slot %d: %s", i, err.Error())
		}
		if slot.commands, err = device.NewCommandBuffer(); err != nil {
			p.release()
			return nil, fmt.Errorf("frame slot %d: %s", i, err.Error())
		}
	}
	return p, nil
}

// FramePipeline drives the per-frame protocol against an asynchronous
// device: wait, acquire, record, submit, present, advance. It cycles a
// bounded ring of frame slots and tracks which slot's fence guards each
// surface image, so the host never rewrites a resource the device still
// reads. A single host goroutine calls Frame; only Invalidate may be
// called from other goroutines.
type FramePipeline struct {
	device  gfx.Device
	surface gfx.Surface

	slots   []frameSlot
	current int

	// imageFences holds, per surface image, the fence of the slot last
	// submitted against it. Entries are weak: slots own the fences, the
	// table never releases one.
	imageFences []gfx.Fence

	mu    sync.Mutex
	dirty bool

	destroyed bool
}

// Frame runs one full protocol cycle, invoking record exactly once unless
// the surface goes stale first. Returns skipped=true when the frame was
// abandoned on a stale acquire; the next call recreates the surface before
// acquiring again. Any other failure is fatal to the pipeline.
func (p *FramePipeline) Frame(record RecordFunc) (bool, error) {
	if p.destroyed {
		panic("core: FramePipeline.Frame() called after Destroy()")
	}

	if p.invalidated() {
		if err := p.recreate(); err != nil {
			return false, err
		}
	}

	slot := &p.slots[p.current]

	// The slot is revisited every len(slots) frames; its fence gates
	// re-recording of the work buffer.
	if err := slot.fence.Wait(); err != nil {
		return false, errors.New("fence.Wait(): " + err.Error())
	}

	imageIndex, err := p.surface.Acquire(slot.imageAvailable)
	if errors.Is(err, gfx.ErrSurfaceStale) {
		log.Debug("stale surface on acquire, frame skipped")
		p.Invalidate()
		return true, nil
	}
	if err != nil {
		return false, errors.New("surface.Acquire(): " + err.Error())
	}

	// Image count and slot count may differ, so the image acquired now
	// may still be owned by another slot's submission. Whatever fence is
	// recorded for it must be observed before the image is rewritten.
	if prev := p.imageFences[imageIndex]; prev != nil && prev != slot.fence {
		if err := prev.Wait(); err != nil {
			return false, errors.New("fence.Wait(): " + err.Error())
		}
	}

	if err := slot.commands.Begin(); err != nil {
		return false, err
	}
	if err := record(slot.commands, imageIndex); err != nil {
		return false, err
	}
	if err := slot.commands.End(); err != nil {
		return false, err
	}

	// Safe to reset: the wait above observed the fence signalled.
	if err := slot.fence.Reset(); err != nil {
		return false, errors.New("fence.Reset(): " + err.Error())
	}

	err = p.device.Submit(gfx.SubmitInfo{
		Commands: slot.commands,
		WaitFor:  []gfx.Semaphore{slot.imageAvailable},
		Signal:   []gfx.Semaphore{slot.queueComplete},
		Fence:    slot.fence,
	})
	if err != nil {
		return false, errors.New("device.Submit(): " + err.Error())
	}

	p.imageFences[imageIndex] = slot.fence

	err = p.surface.Present(slot.queueComplete, imageIndex)
	if errors.Is(err, gfx.ErrSurfaceStale) {
		// The work was submitted and completes normally, only its
		// presentation is unreliable. Recreate before the next acquire.
		log.Debug("stale surface on present")
		p.Invalidate()
	} else if err != nil {
		return false, errors.New("surface.Present(): " + err.Error())
	}

	p.current = (p.current + 1) % len(p.slots)
	return false, nil
}

// Invalidate marks the surface for recreation before the next acquire.
// Window event loops call it on resize notifications; it is safe to call
// concurrently with Frame.
func (p *FramePipeline) Invalidate() {
	p.mu.Lock()
	p.dirty = true
	p.mu.Unlock()
}

func (p *FramePipeline) invalidated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

// recreate rebuilds the surface wholesale. The device must have finished
// every frame that could still touch the old image sequence, hence the
// idle wait; recreation mid-flight would destroy images the device reads.
func (p *FramePipeline) recreate() error {
	log.Debug("recreating presentation surface")

	if err := p.device.WaitIdle(); err != nil {
		return errors.New("device.WaitIdle(): " + err.Error())
	}
	if err := p.surface.Recreate(); err != nil {
		return errors.New("surface.Recreate(): " + err.Error())
	}

	// The old generation's images are gone along with their bookkeeping;
	// the image count may have changed with the new extent.
	p.imageFences = make([]gfx.Fence, p.surface.ImageCount())

	p.mu.Lock()
	p.dirty = false
	p.mu.Unlock()
	return nil
}

// Destroy waits out all outstanding device work and releases every slot's
// resources exactly once: work buffers first, then ordering primitives.
// The surface and device belong to the caller and are left alone. Calling
// Destroy again is a no-op.
func (p *FramePipeline) Destroy() error {
	if p.destroyed {
		return nil
	}
	if err := p.device.WaitIdle(); err != nil {
		return errors.New("device.WaitIdle(): " + err.Error())
	}
	p.release()
	p.destroyed = true
	return nil
}

func (p *FramePipeline) release() {
	for i := range p.slots {
		if p.slots[i].commands != nil {
			p.slots[i].commands.Release()
		}
	}
	for i := range p.slots {
		slot := &p.slots[i]
		if slot.imageAvailable != nil {
			slot.imageAvailable.Release()
		}
		if slot.queueComplete != nil {
			slot.queueComplete.Release()
		}
		if slot.fence != nil {
			slot.fence.Release()
		}
	}
	p.slots = nil
	p.imageFences = nil
}
