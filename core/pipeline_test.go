// Copyright (c) 2024 berylllium
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/berylllium/lise/gfx"
)

// The fakes below stand in for a device that completes work
// asynchronously. A fence submitted with work goes pending; waiting on a
// pending fence plays the role of the device finishing the frame. Waiting
// on a fence that is neither signalled nor pending would block a real
// program forever, so the fake reports it as an error. Contract misuse
// that a real driver would reject (resetting or resubmitting an in-flight
// fence, submitting an open command buffer) is collected in misuse.

type eventLog struct {
	events []string
}

func (l *eventLog) add(format string, args ...interface{}) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

type fakeDevice struct {
	log    eventLog
	misuse []string

	fences  []*fakeFence
	sems    int
	cmds    int
	submits int

	failSemaphoreAt int
	failFenceAt     int
	failCommandsAt  int
}

type fakeFence struct {
	id        string
	dev       *fakeDevice
	signalled bool
	pending   bool
	released  int
}

func (f *fakeFence) Wait() error {
	f.dev.log.add("%s wait", f.id)
	if f.signalled {
		return nil
	}
	if f.pending {
		f.pending = false
		f.signalled = true
		return nil
	}
	return fmt.Errorf("%s would never signal", f.id)
}

func (f *fakeFence) Reset() error {
	f.dev.log.add("%s reset", f.id)
	if f.pending {
		f.dev.misuse = append(f.dev.misuse, "reset of in-flight "+f.id)
	}
	f.signalled = false
	return nil
}

func (f *fakeFence) Release() {
	f.dev.log.add("%s release", f.id)
	f.released++
}

type fakeSemaphore struct {
	id       string
	dev      *fakeDevice
	released int
}

func (s *fakeSemaphore) Release() {
	s.dev.log.add("%s release", s.id)
	s.released++
}

type fakeCommandBuffer struct {
	id       string
	dev      *fakeDevice
	open     bool
	released int
}

func (c *fakeCommandBuffer) Begin() error {
	if c.open {
		c.dev.misuse = append(c.dev.misuse, c.id+" begun while open")
	}
	c.open = true
	c.dev.log.add("%s begin", c.id)
	return nil
}

func (c *fakeCommandBuffer) End() error {
	if !c.open {
		c.dev.misuse = append(c.dev.misuse, c.id+" ended while closed")
	}
	c.open = false
	c.dev.log.add("%s end", c.id)
	return nil
}

func (c *fakeCommandBuffer) Release() {
	c.dev.log.add("%s release", c.id)
	c.released++
}

func (d *fakeDevice) NewSemaphore() (gfx.Semaphore, error) {
	if d.failSemaphoreAt > 0 && d.sems+1 == d.failSemaphoreAt {
		return nil, fmt.Errorf("no more semaphores")
	}
	s := &fakeSemaphore{id: fmt.Sprintf("s%d", d.sems), dev: d}
	d.sems++
	d.log.add("%s created", s.id)
	return s, nil
}

func (d *fakeDevice) NewFence(signalled bool) (gfx.Fence, error) {
	if d.failFenceAt > 0 && len(d.fences)+1 == d.failFenceAt {
		return nil, fmt.Errorf("no more fences")
	}
	f := &fakeFence{id: fmt.Sprintf("f%d", len(d.fences)), dev: d, signalled: signalled}
	d.fences = append(d.fences, f)
	d.log.add("%s created signalled=%t", f.id, signalled)
	return f, nil
}

func (d *fakeDevice) NewCommandBuffer() (gfx.CommandBuffer, error) {
	if d.failCommandsAt > 0 && d.cmds+1 == d.failCommandsAt {
		return nil, fmt.Errorf("no more command buffers")
	}
	c := &fakeCommandBuffer{id: fmt.Sprintf("c%d", d.cmds), dev: d}
	d.cmds++
	d.log.add("%s created", c.id)
	return c, nil
}

func (d *fakeDevice) Submit(info gfx.SubmitInfo) error {
	d.submits++
	cmd := info.Commands.(*fakeCommandBuffer)
	if cmd.open {
		d.misuse = append(d.misuse, "submit of open "+cmd.id)
	}
	fence := info.Fence.(*fakeFence)
	if fence.pending {
		d.misuse = append(d.misuse, "submit with in-flight "+fence.id)
	}
	if fence.signalled {
		d.misuse = append(d.misuse, "submit with signalled "+fence.id)
	}
	fence.pending = true
	var wait, signal []string
	for _, s := range info.WaitFor {
		wait = append(wait, s.(*fakeSemaphore).id)
	}
	for _, s := range info.Signal {
		signal = append(signal, s.(*fakeSemaphore).id)
	}
	d.log.add("submit %s wait=%s signal=%s fence=%s",
		cmd.id, strings.Join(wait, ","), strings.Join(signal, ","), fence.id)
	return nil
}

func (d *fakeDevice) WaitIdle() error {
	for _, f := range d.fences {
		if f.pending {
			f.pending = false
			f.signalled = true
		}
	}
	d.log.add("device idle")
	return nil
}

type fakeSurface struct {
	dev        *fakeDevice
	images     int
	nextImages int
	next       int

	acquires     int
	presents     int
	recreates    int
	staleAcquire map[int]bool
	stalePresent map[int]bool
}

func (s *fakeSurface) Acquire(imageAvailable gfx.Semaphore) (int, error) {
	s.acquires++
	if s.staleAcquire[s.acquires] {
		s.dev.log.add("acquire stale")
		return 0, gfx.ErrSurfaceStale
	}
	idx := s.next
	s.next = (s.next + 1) % s.images
	s.dev.log.add("acquire %d signal %s", idx, imageAvailable.(*fakeSemaphore).id)
	return idx, nil
}

func (s *fakeSurface) Present(wait gfx.Semaphore, imageIndex int) error {
	s.presents++
	if s.stalePresent[s.presents] {
		s.dev.log.add("present %d stale", imageIndex)
		return gfx.ErrSurfaceStale
	}
	s.dev.log.add("present %d wait %s", imageIndex, wait.(*fakeSemaphore).id)
	return nil
}

func (s *fakeSurface) Recreate() error {
	s.recreates++
	if s.nextImages > 0 {
		s.images = s.nextImages
		s.nextImages = 0
	}
	s.next = 0
	s.dev.log.add("surface recreate")
	return nil
}

func (s *fakeSurface) ImageCount() int {
	return s.images
}

func newFakes(images int) (*fakeDevice, *fakeSurface) {
	dev := &fakeDevice{}
	return dev, &fakeSurface{
		dev:          dev,
		images:       images,
		staleAcquire: make(map[int]bool),
		stalePresent: make(map[int]bool),
	}
}

func discardFrame(commands gfx.CommandBuffer, imageIndex int) error {
	return nil
}

func assertClean(t *testing.T, dev *fakeDevice) {
	t.Helper()
	for _, m := range dev.misuse {
		t.Error(m)
	}
}

// assertSequence checks that the given events appear in the log in the
// given order, other events in between are fine.
func assertSequence(t *testing.T, events []string, want ...string) {
	t.Helper()
	i := 0
	for _, ev := range events {
		if i < len(want) && ev == want[i] {
			i++
		}
	}
	if i != len(want) {
		t.Errorf("event %q missing or out of order in:\n%s",
			want[i], strings.Join(events, "\n"))
	}
}

func countEvents(events []string, want string) int {
	n := 0
	for _, ev := range events {
		if ev == want {
			n++
		}
	}
	return n
}

func TestFrameAdvancesSlotsInOrder(t *testing.T) {
	dev, surface := newFakes(3)
	pipeline, err := NewFramePipeline(dev, surface, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(pipeline.slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(pipeline.slots))
	}

	for frame := 0; frame < 6; frame++ {
		if pipeline.current != frame%2 {
			t.Errorf("frame %d ran on slot %d, expected %d", frame, pipeline.current, frame%2)
		}
		skipped, err := pipeline.Frame(discardFrame)
		if err != nil {
			t.Fatalf("frame %d: %s", frame, err.Error())
		}
		if skipped {
			t.Errorf("frame %d skipped without a stale surface", frame)
		}
	}
	if dev.submits != 6 {
		t.Errorf("expected 6 submissions, got %d", dev.submits)
	}
	assertClean(t, dev)
}

func TestSlotFencesCreatedSignalled(t *testing.T) {
	dev, surface := newFakes(3)
	pipeline, err := NewFramePipeline(dev, surface, 2)
	if err != nil {
		t.Fatal(err)
	}
	assertSequence(t, dev.log.events,
		"f0 created signalled=true",
		"f1 created signalled=true",
	)

	// A fence created unsignalled would make the very first wait on its
	// slot block forever.
	if _, err := pipeline.Frame(discardFrame); err != nil {
		t.Error(err)
	}
	assertClean(t, dev)
}

func TestDefaultFramesInFlight(t *testing.T) {
	dev, surface := newFakes(3)
	pipeline, err := NewFramePipeline(dev, surface, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pipeline.slots) != DefaultFramesInFlight {
		t.Errorf("expected %d slots, got %d", DefaultFramesInFlight, len(pipeline.slots))
	}
	assertClean(t, dev)
}

func TestImageFenceTracking(t *testing.T) {
	dev, surface := newFakes(3)
	pipeline, err := NewFramePipeline(dev, surface, 2)
	if err != nil {
		t.Fatal(err)
	}

	// Six frames over three images and two slots: images are granted
	// 0,1,2,0,1,2 while slots alternate, so every image is rewritten
	// once by each slot.
	for frame := 0; frame < 6; frame++ {
		slotFence := pipeline.slots[pipeline.current].fence
		if _, err := pipeline.Frame(discardFrame); err != nil {
			t.Fatalf("frame %d: %s", frame, err.Error())
		}
		if pipeline.imageFences[frame%3] != slotFence {
			t.Errorf("frame %d: image %d not guarded by the submitting slot's fence", frame, frame%3)
		}
	}

	if pipeline.imageFences[0] != pipeline.slots[1].fence ||
		pipeline.imageFences[1] != pipeline.slots[0].fence ||
		pipeline.imageFences[2] != pipeline.slots[1].fence {
		t.Error("image fence table does not match the last submissions")
	}
	assertClean(t, dev)
}

func TestReacquiredImageWaitsForOwner(t *testing.T) {
	dev, surface := newFakes(3)
	pipeline, err := NewFramePipeline(dev, surface, 2)
	if err != nil {
		t.Fatal(err)
	}

	for frame := 0; frame < 3; frame++ {
		if _, err := pipeline.Frame(discardFrame); err != nil {
			t.Fatalf("frame %d: %s", frame, err.Error())
		}
	}

	// Frame 3 reacquires image 0, still guarded by slot 0's fence from
	// frame 0's submission. Slot 1 must observe that fence before it
	// starts recording over the image.
	mark := len(dev.log.events)
	if _, err := pipeline.Frame(discardFrame); err != nil {
		t.Fatal(err)
	}
	assertSequence(t, dev.log.events[mark:],
		"f1 wait",
		"acquire 0 signal s2",
		"f0 wait",
		"c1 begin",
	)
	assertClean(t, dev)
}

func TestOwnFenceNotWaitedTwice(t *testing.T) {
	dev, surface := newFakes(2)
	pipeline, err := NewFramePipeline(dev, surface, 2)
	if err != nil {
		t.Fatal(err)
	}

	// With as many images as slots the acquired image is always guarded
	// by the current slot's own fence, which the slot wait has already
	// observed. A second wait on it must not happen, it would deadlock a
	// real device once the fence is reset.
	for frame := 0; frame < 6; frame++ {
		if _, err := pipeline.Frame(discardFrame); err != nil {
			t.Fatalf("frame %d: %s", frame, err.Error())
		}
	}
	if n := countEvents(dev.log.events, "f0 wait"); n != 3 {
		t.Errorf("slot 0 fence waited %d times, expected 3", n)
	}
	if n := countEvents(dev.log.events, "f1 wait"); n != 3 {
		t.Errorf("slot 1 fence waited %d times, expected 3", n)
	}
	assertClean(t, dev)
}

func TestStaleAcquireSkipsFrame(t *testing.T) {
	dev, surface := newFakes(3)
	surface.staleAcquire[4] = true
	pipeline, err := NewFramePipeline(dev, surface, 2)
	if err != nil {
		t.Fatal(err)
	}

	for frame := 0; frame < 3; frame++ {
		if _, err := pipeline.Frame(discardFrame); err != nil {
			t.Fatalf("frame %d: %s", frame, err.Error())
		}
	}

	skipped, err := pipeline.Frame(discardFrame)
	if err != nil {
		t.Fatal(err)
	}
	if !skipped {
		t.Error("frame with a stale acquire was not skipped")
	}
	if dev.submits != 3 {
		t.Errorf("skipped frame submitted work, %d submissions", dev.submits)
	}
	if pipeline.current != 1 {
		t.Errorf("skipped frame advanced the slot ring to %d", pipeline.current)
	}

	// Recreation happens at the top of the next frame, before its
	// acquire, and never in the middle of the failed one.
	mark := len(dev.log.events)
	skipped, err = pipeline.Frame(discardFrame)
	if err != nil {
		t.Fatal(err)
	}
	if skipped {
		t.Error("frame after recreation was skipped")
	}
	if surface.recreates != 1 {
		t.Errorf("surface recreated %d times, expected 1", surface.recreates)
	}
	assertSequence(t, dev.log.events[mark:],
		"device idle",
		"surface recreate",
		"acquire 0 signal s2",
	)
	if dev.submits != 4 {
		t.Errorf("expected 4 submissions, got %d", dev.submits)
	}
	assertClean(t, dev)
}

func TestStalePresentKeepsSubmission(t *testing.T) {
	dev, surface := newFakes(3)
	surface.stalePresent[7] = true
	pipeline, err := NewFramePipeline(dev, surface, 2)
	if err != nil {
		t.Fatal(err)
	}

	for frame := 0; frame < 7; frame++ {
		skipped, err := pipeline.Frame(discardFrame)
		if err != nil {
			t.Fatalf("frame %d: %s", frame, err.Error())
		}
		if skipped {
			t.Errorf("frame %d skipped", frame)
		}
	}

	// The seventh frame's work was already submitted when the present
	// reported the surface stale, so the submission stands and the ring
	// advances; only the next frame recreates.
	if dev.submits != 7 {
		t.Errorf("expected 7 submissions, got %d", dev.submits)
	}
	if pipeline.current != 1 {
		t.Errorf("ring did not advance past the stale present, slot %d", pipeline.current)
	}

	mark := len(dev.log.events)
	if _, err := pipeline.Frame(discardFrame); err != nil {
		t.Fatal(err)
	}
	assertSequence(t, dev.log.events[mark:],
		"device idle",
		"surface recreate",
		"acquire 0 signal s2",
	)
	if surface.recreates != 1 {
		t.Errorf("surface recreated %d times, expected 1", surface.recreates)
	}
	assertClean(t, dev)
}

func TestInvalidateRebuildsSurface(t *testing.T) {
	dev, surface := newFakes(3)
	surface.nextImages = 4
	pipeline, err := NewFramePipeline(dev, surface, 2)
	if err != nil {
		t.Fatal(err)
	}

	for frame := 0; frame < 3; frame++ {
		if _, err := pipeline.Frame(discardFrame); err != nil {
			t.Fatalf("frame %d: %s", frame, err.Error())
		}
	}

	// A window event, not the surface itself, reports the resize.
	pipeline.Invalidate()

	if _, err := pipeline.Frame(discardFrame); err != nil {
		t.Fatal(err)
	}
	if surface.recreates != 1 {
		t.Errorf("surface recreated %d times, expected 1", surface.recreates)
	}
	if pipeline.invalidated() {
		t.Error("pipeline still marked dirty after recreation")
	}

	// The image fence table follows the new image count and forgets the
	// old generation entirely.
	if len(pipeline.imageFences) != 4 {
		t.Fatalf("image fence table has %d entries, expected 4", len(pipeline.imageFences))
	}
	for idx, fence := range pipeline.imageFences {
		if idx == 0 && fence != pipeline.slots[1].fence {
			t.Error("image 0 not guarded by the frame submitted after recreation")
		}
		if idx != 0 && fence != nil {
			t.Errorf("image %d kept a fence from before recreation", idx)
		}
	}
	assertClean(t, dev)
}

func TestDestroyReleasesOnce(t *testing.T) {
	dev, surface := newFakes(3)
	pipeline, err := NewFramePipeline(dev, surface, 2)
	if err != nil {
		t.Fatal(err)
	}
	for frame := 0; frame < 3; frame++ {
		if _, err := pipeline.Frame(discardFrame); err != nil {
			t.Fatalf("frame %d: %s", frame, err.Error())
		}
	}

	if err := pipeline.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := pipeline.Destroy(); err != nil {
		t.Fatal(err)
	}

	// Outstanding work is waited out first, then work buffers go before
	// the ordering primitives. The second Destroy touches nothing.
	assertSequence(t, dev.log.events,
		"device idle",
		"c0 release",
		"c1 release",
		"s0 release",
	)
	if n := countEvents(dev.log.events, "device idle"); n != 1 {
		t.Errorf("device waited idle %d times, expected 1", n)
	}
	for _, ev := range []string{
		"c0 release", "c1 release",
		"s0 release", "s1 release", "s2 release", "s3 release",
		"f0 release", "f1 release",
	} {
		if n := countEvents(dev.log.events, ev); n != 1 {
			t.Errorf("%s happened %d times, expected 1", ev, n)
		}
	}
	assertClean(t, dev)
}

func TestFrameAfterDestroyPanics(t *testing.T) {
	dev, surface := newFakes(3)
	pipeline, err := NewFramePipeline(dev, surface, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := pipeline.Destroy(); err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Frame() after Destroy() did not panic")
		}
		assertClean(t, dev)
	}()
	pipeline.Frame(discardFrame)
}

func TestFailedSetupReleasesPartialSlots(t *testing.T) {
	dev, surface := newFakes(3)
	dev.failSemaphoreAt = 3
	if _, err := NewFramePipeline(dev, surface, 2); err == nil {
		t.Fatal("expected slot creation to fail")
	}

	// Slot 0 was fully built, slot 1 got nothing. Everything created
	// must be released again.
	for _, ev := range []string{"c0 release", "s0 release", "s1 release", "f0 release"} {
		if n := countEvents(dev.log.events, ev); n != 1 {
			t.Errorf("%s happened %d times, expected 1", ev, n)
		}
	}
	assertClean(t, dev)
}
