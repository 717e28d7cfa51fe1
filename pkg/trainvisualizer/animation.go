package trainvisualizer

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/ctdf"
)

// animation is the Animating state of a marker entry
type animation struct {
	from      ctdf.TrainPosition
	to        ctdf.TrainPosition
	start     time.Time
	duration  time.Duration
	easing    EasingFunc
	lastFrame time.Time
}

// Animate moves the marker for id from one position to another. Any animation
// already running for id is replaced. It reports false when the marker snapped
// straight to the target instead.
func (v *Visualizer) Animate(id string, from ctdf.TrainPosition, to ctdf.TrainPosition) bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	entry, exists := v.markers[id]
	if !exists {
		return false
	}

	return v.animateLocked(id, entry, from, to)
}

func (v *Visualizer) animateLocked(id string, entry *markerEntry, from ctdf.TrainPosition, to ctdf.TrainPosition) bool {
	entry.animation = nil

	animationConfig := v.config.Animation
	distance := from.Distance(to)

	if !animationConfig.Enabled || !from.IsFinite() ||
		distance < animationConfig.MinDisplacementMeters ||
		distance > animationConfig.MaxDisplacementMeters {
		v.setPositionLocked(entry, to)
		return false
	}

	now := v.now()
	entry.animation = &animation{
		from:      from,
		to:        to,
		start:     now,
		duration:  animationConfig.ClampedDuration(),
		easing:    GetEasing(animationConfig.Easing),
		lastFrame: now,
	}
	v.setPositionLocked(entry, from)

	log.Debug().Str("train", id).Float64("distance", distance).Msg("Animating train marker")

	v.startFramesLocked()
	return true
}

func (v *Visualizer) setPositionLocked(entry *markerEntry, position ctdf.TrainPosition) {
	entry.position = position
	entry.marker.SetPosition(position)
}

// Advance renders the frame for now on every animating marker and returns how
// many animations are still running afterwards
func (v *Visualizer) Advance(now time.Time) int {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	running := 0

	for _, entry := range v.markers {
		current := entry.animation
		if current == nil {
			continue
		}

		// frames for one marker never go back in time
		if now.Before(current.lastFrame) {
			running++
			continue
		}
		current.lastFrame = now

		progress := float64(now.Sub(current.start)) / float64(current.duration)
		if progress >= 1 {
			v.setPositionLocked(entry, current.to)
			entry.animation = nil
			continue
		}
		if progress < 0 {
			progress = 0
		}

		v.setPositionLocked(entry, current.from.Interpolate(current.to, current.easing(progress)))
		running++
	}

	if running == 0 {
		v.stopFramesLocked()
	}

	return running
}

// CancelAnimation stops the animation for id where it is. It reports whether one was running.
func (v *Visualizer) CancelAnimation(id string) bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	entry, exists := v.markers[id]
	if !exists || entry.animation == nil {
		return false
	}

	entry.animation = nil
	return true
}

func (v *Visualizer) IsAnimating(id string) bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	entry, exists := v.markers[id]
	return exists && entry.animation != nil
}

func (v *Visualizer) AnimatingCount() int {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	count := 0
	for _, entry := range v.markers {
		if entry.animation != nil {
			count++
		}
	}
	return count
}

// Destroy cancels every animation, stops the frame ticker and removes all markers
func (v *Visualizer) Destroy() {
	v.mutex.Lock()
	for _, entry := range v.markers {
		entry.animation = nil
	}
	v.mutex.Unlock()

	v.ClearAllMarkers()

	log.Debug().Msg("Train visualizer destroyed")
}

func (v *Visualizer) startFramesLocked() {
	if v.manualFrames || v.frameStop != nil {
		return
	}

	v.frameStop = make(chan struct{})
	go v.runFrames(time.NewTicker(v.config.Animation.FrameInterval()), v.frameStop)
}

func (v *Visualizer) stopFramesLocked() {
	if v.frameStop == nil {
		return
	}

	close(v.frameStop)
	v.frameStop = nil
}

func (v *Visualizer) runFrames(ticker *time.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			v.Advance(v.now())
		}
	}
}
