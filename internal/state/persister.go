package state

import (
	"context"
	"sync"
)

// persister runs auto-persist jobs one at a time in the background. Its
// lifetime is one unlocked session: stop cancels queued work and waits
// for the running job before the caller wipes secrets.
type persister struct {
	ctx    context.Context //nolint:containedctx // session-scoped cancellation
	cancel context.CancelFunc
	wg     sync.WaitGroup
	serial sync.Mutex
}

func newPersister() *persister {
	ctx, cancel := context.WithCancel(context.Background())
	return &persister{ctx: ctx, cancel: cancel}
}

// trigger queues job. Jobs run in order of acquisition of the serial lock
// and observe cancellation through ctx.
func (p *persister) trigger(job func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.serial.Lock()
		defer p.serial.Unlock()
		if p.ctx.Err() != nil {
			return
		}
		job(p.ctx)
	}()
}

// flush waits for every queued job.
func (p *persister) flush() {
	p.wg.Wait()
}

// stop cancels pending jobs and waits for the running one to return.
func (p *persister) stop() {
	p.cancel()
	p.wg.Wait()
}
