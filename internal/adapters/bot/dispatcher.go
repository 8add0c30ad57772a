package bot

import "sync"

// Dispatcher runs tasks of the same key one at a time in submission order.
// Tasks of different keys run in parallel, at most maxActive keys at once.
type Dispatcher struct {
	mu      sync.Mutex
	pending map[string][]func()
	active  map[string]bool
	depth   int
	onDepth func(int)

	slots chan struct{}
	wg    sync.WaitGroup
}

// NewDispatcher builds a dispatcher. maxActive <= 0 means unbounded.
// onDepth, when set, receives the number of queued tasks after each change.
func NewDispatcher(maxActive int, onDepth func(int)) *Dispatcher {
	d := &Dispatcher{
		pending: make(map[string][]func()),
		active:  make(map[string]bool),
		onDepth: onDepth,
	}
	if maxActive > 0 {
		d.slots = make(chan struct{}, maxActive)
	}
	return d
}

func (d *Dispatcher) Submit(key string, task func()) {
	d.mu.Lock()
	if d.active[key] {
		d.pending[key] = append(d.pending[key], task)
		d.depth++
		d.notifyLocked()
		d.mu.Unlock()
		return
	}
	d.active[key] = true
	d.wg.Add(1)
	d.mu.Unlock()

	go d.run(key, task)
}

// Wait blocks until every submitted task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Depth returns the number of queued tasks.
func (d *Dispatcher) Depth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.depth
}

func (d *Dispatcher) run(key string, task func()) {
	defer d.wg.Done()
	for {
		d.acquire()
		task()
		d.release()

		d.mu.Lock()
		queue := d.pending[key]
		if len(queue) == 0 {
			delete(d.pending, key)
			delete(d.active, key)
			d.mu.Unlock()
			return
		}
		task = queue[0]
		queue[0] = nil
		d.pending[key] = queue[1:]
		d.depth--
		d.notifyLocked()
		d.mu.Unlock()
	}
}

func (d *Dispatcher) acquire() {
	if d.slots != nil {
		d.slots <- struct{}{}
	}
}

func (d *Dispatcher) release() {
	if d.slots != nil {
		<-d.slots
	}
}

func (d *Dispatcher) notifyLocked() {
	if d.onDepth != nil {
		d.onDepth(d.depth)
	}
}
