package cluster

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/plexus/config"
)

// workChunk represents a range of clusters for a worker to process.
type workChunk struct {
	start, end int
	tunables   config.Tunables
}

// parallelState holds the persistent worker pool for cluster updates.
type parallelState struct {
	field      *Field
	numWorkers int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(f *Field, workers int) *parallelState {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &parallelState{
		field:      f,
		numWorkers: min(workers, len(f.systems)),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker processes chunks until stopped.
func (p *parallelState) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.field.updateRange(chunk.start, chunk.end, chunk.tunables)
			p.doneChan <- struct{}{}
		}
	}
}

// run splits the clusters into contiguous chunks and waits for all of them.
// Each cluster is touched by exactly one worker.
func (p *parallelState) run(t config.Tunables) {
	if !p.running {
		p.startWorkers()
	}

	n := len(p.field.systems)
	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end, tunables: t}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}
