package gputest

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/spectra/engine/core"
	"github.com/spaghettifunk/spectra/engine/renderer/metadata"
)

// executing returns the submissions that have not completed yet.
func (d *Device) executing() []*submission {
	now := time.Now()
	live := d.inflight[:0]
	for _, s := range d.inflight {
		if s.done.After(now) {
			live = append(live, s)
		}
	}
	d.inflight = live
	return live
}

// waitFor blocks until every submission accepted by match has completed. The
// lock is released while sleeping.
func (d *Device) waitFor(match func(*submission) bool) {
	for {
		var until time.Time
		for _, s := range d.executing() {
			if match(s) && s.done.After(until) {
				until = s.done
			}
		}
		if until.IsZero() {
			return
		}
		d.mu.Unlock()
		time.Sleep(time.Until(until))
		d.mu.Lock()
	}
}

func (d *Device) BeginFrame(frame uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot := uint32(frame % uint64(d.FramesInFlight()))
	d.waitFor(func(s *submission) bool { return s.slot == slot })

	if len(d.beginErrs) > 0 {
		err := d.beginErrs[0]
		d.beginErrs = d.beginErrs[1:]
		return err
	}
	return nil
}

func (d *Device) EndFrame(frame uint64, sub *metadata.FrameSubmission) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.endErrs) > 0 {
		err := d.endErrs[0]
		d.endErrs = d.endErrs[1:]
		return err
	}
	if d.extent.IsZero() {
		d.violation("frame %d presented to a zero sized surface", frame)
		return fmt.Errorf("present: %w", core.ErrSurfaceOutOfDate)
	}

	s := &submission{
		frame:    frame,
		slot:     uint32(frame % uint64(d.FramesInFlight())),
		done:     time.Now().Add(d.GPUDelay),
		buffers:  make(map[metadata.BufferHandle]bool),
		images:   make(map[metadata.ImageHandle]bool),
		views:    make(map[metadata.ImageViewHandle]bool),
		sets:     make(map[metadata.DescriptorSetHandle]bool),
		pipeline: sub.Pipeline,
	}

	cfg, ok := d.pipelines[sub.Pipeline]
	if !ok {
		d.violation("frame %d dispatches unknown pipeline %d", frame, sub.Pipeline)
		return fmt.Errorf("dispatch: %w", core.ErrUnknown)
	}
	bound := make(map[uint32]bool, len(sub.DescriptorSets))
	for _, b := range sub.DescriptorSets {
		if bound[b.Index] {
			d.violation("frame %d binds set index %d twice", frame, b.Index)
		}
		bound[b.Index] = true
	}
	for i, lh := range cfg.SetLayouts {
		if len(d.layouts[lh]) > 0 && !bound[uint32(i)] {
			d.violation("frame %d leaves set %d of pipeline %s unbound", frame, i, cfg.Name)
		}
	}
	if pc := cfg.PushConstants; pc != nil && uint32(len(sub.PushConstants)) != pc.Size {
		d.violation("frame %d pushes %d bytes, pipeline %s expects %d", frame, len(sub.PushConstants), cfg.Name, pc.Size)
	}
	for _, b := range sub.DescriptorSets {
		i, sh := b.Index, b.Set
		set, ok := d.sets[sh]
		if !ok {
			d.violation("frame %d binds unknown descriptor set %d", frame, sh)
			continue
		}
		if int(i) >= len(cfg.SetLayouts) || set.layout != cfg.SetLayouts[i] {
			d.violation("frame %d binds set %d with a layout the pipeline does not use", frame, i)
		}
		s.sets[sh] = true
		for _, b := range d.layouts[set.layout] {
			w, ok := set.writes[b.Binding]
			if !ok {
				d.violation("frame %d set %d binding %d was never written", frame, i, b.Binding)
				continue
			}
			if err := d.checkWrite(w); err != nil {
				d.violation("frame %d set %d binding %d is stale: %v", frame, i, b.Binding, err)
				continue
			}
			if w.Buffer != 0 {
				s.buffers[w.Buffer] = true
			}
			if w.ImageView != 0 {
				s.views[w.ImageView] = true
				s.images[d.views[w.ImageView]] = true
			}
		}
	}
	for _, img := range sub.Images {
		s.images[img] = true
	}
	if sub.Present != 0 {
		if _, ok := d.images[sub.Present]; !ok {
			d.violation("frame %d presents unknown image %d", frame, sub.Present)
		}
		s.images[sub.Present] = true
	}
	if sub.Dispatch[0] == 0 || sub.Dispatch[1] == 0 || sub.Dispatch[2] == 0 {
		d.violation("frame %d dispatches an empty grid %v", frame, sub.Dispatch)
	}

	recorded := *sub
	recorded.DescriptorSets = append([]metadata.BoundDescriptorSet(nil), sub.DescriptorSets...)
	recorded.PushConstants = append([]byte(nil), sub.PushConstants...)
	recorded.Images = append([]metadata.ImageHandle(nil), sub.Images...)
	d.submissions = append(d.submissions, recorded)
	d.inflight = append(d.inflight, s)
	return nil
}

func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waitFor(func(*submission) bool { return true })
	return nil
}

func (d *Device) RecreateSwapchain(extent metadata.Extent) (metadata.Extent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(d.executing()); n > 0 {
		d.violation("swapchain recreated with %d frames in flight", n)
	}
	d.extent = extent
	d.recreations++
	return extent, nil
}
