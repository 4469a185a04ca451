package sim

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pthm-cable/ecosim/systems"
)

// stageResult captures one environment's stage outcome.
type stageResult struct {
	interaction systems.InteractionReport
	balance     systems.BalanceReport

	interactionTime time.Duration
	balancingTime   time.Duration
}

// runStage runs both phases on one environment and times them.
func runStage(env *systems.Environment, rng *rand.Rand) stageResult {
	var r stageResult

	start := time.Now()
	r.interaction = env.SimulateInteractions(rng)
	mid := time.Now()
	r.balance = env.MonitorBiodiversity()
	r.interactionTime = mid.Sub(start)
	r.balancingTime = time.Since(mid)

	return r
}

// workItem assigns one environment to a worker for the current stage.
type workItem struct {
	index int
}

// workerPool steps environments concurrently. Each environment and its rng
// are owned by exactly one worker for the duration of a stage; results are
// written to distinct slots, so no locking is needed.
type workerPool struct {
	numWorkers int

	envs    []*systems.Environment
	rngs    []*rand.Rand
	results []stageResult

	// Worker pool channels
	workChan chan workItem  // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &workerPool{numWorkers: numWorkers}
}

// start launches persistent worker goroutines.
func (p *workerPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workItem, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop signals all workers to exit and waits for them.
func (p *workerPool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing environments until stopped.
func (p *workerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case item, ok := <-p.workChan:
			if !ok {
				return
			}
			p.results[item.index] = runStage(p.envs[item.index], p.rngs[item.index])
			p.doneChan <- struct{}{}
		}
	}
}

// run steps every environment once and returns results in input order.
func (p *workerPool) run(envs []*systems.Environment, rngs []*rand.Rand) []stageResult {
	results := make([]stageResult, len(envs))

	// Single-threaded when there is nothing to spread
	if p.numWorkers == 1 || len(envs) < 2 {
		for i, env := range envs {
			results[i] = runStage(env, rngs[i])
		}
		return results
	}

	if !p.running {
		p.start()
	}
	p.envs, p.rngs, p.results = envs, rngs, results

	// Feed from a separate goroutine so a full workChan never blocks
	// completion signals.
	go func() {
		for i := range envs {
			p.workChan <- workItem{index: i}
		}
	}()

	// Wait for all environments to complete
	for range envs {
		<-p.doneChan
	}

	p.envs, p.rngs, p.results = nil, nil, nil
	return results
}
