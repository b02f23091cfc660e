package sync

import "sync"

const progressBufferSize = 16

// UploadProgress is emitted after each upload item completes, success or
// failure. CurrentIndex only moves forward within one pass and ends at
// TotalCount.
type UploadProgress struct {
	CurrentIndex int
	TotalCount   int
}

// ProgressBroadcaster fans out the two progress streams of a pass: overall
// pass progress in [0,1] and per-item upload progress. Sends never block the
// producer; a full or absent subscriber just misses events.
type ProgressBroadcaster struct {
	mu         sync.RWMutex
	passSubs   []chan float64
	uploadSubs []chan UploadProgress
}

func NewProgressBroadcaster() *ProgressBroadcaster {
	return &ProgressBroadcaster{}
}

// SubscribePass returns a channel receiving overall pass progress.
func (p *ProgressBroadcaster) SubscribePass() <-chan float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan float64, progressBufferSize)
	p.passSubs = append(p.passSubs, ch)
	return ch
}

// SubscribeUpload returns a channel receiving upload progress events.
func (p *ProgressBroadcaster) SubscribeUpload() <-chan UploadProgress {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan UploadProgress, progressBufferSize)
	p.uploadSubs = append(p.uploadSubs, ch)
	return ch
}

// UnsubscribePass removes and closes a pass-progress subscription.
func (p *ProgressBroadcaster) UnsubscribePass(ch <-chan float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, sub := range p.passSubs {
		if sub == ch {
			close(sub)
			p.passSubs = append(p.passSubs[:i], p.passSubs[i+1:]...)
			break
		}
	}
}

// UnsubscribeUpload removes and closes an upload-progress subscription.
func (p *ProgressBroadcaster) UnsubscribeUpload(ch <-chan UploadProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, sub := range p.uploadSubs {
		if sub == ch {
			close(sub)
			p.uploadSubs = append(p.uploadSubs[:i], p.uploadSubs[i+1:]...)
			break
		}
	}
}

// PublishPass broadcasts overall pass progress.
func (p *ProgressBroadcaster) PublishPass(fraction float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, sub := range p.passSubs {
		select {
		case sub <- fraction:
		default:
			// slow consumer, skip rather than stall the pass
		}
	}
}

// PublishUpload broadcasts an upload progress event.
func (p *ProgressBroadcaster) PublishUpload(event UploadProgress) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, sub := range p.uploadSubs {
		select {
		case sub <- event:
		default:
		}
	}
}

// Close closes all subscriptions.
func (p *ProgressBroadcaster) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sub := range p.passSubs {
		close(sub)
	}
	for _, sub := range p.uploadSubs {
		close(sub)
	}
	p.passSubs = nil
	p.uploadSubs = nil
}
