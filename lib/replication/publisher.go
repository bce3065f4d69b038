package replication

import (
	"context"
	"sync"
	"time"

	"github.com/ValentinKolb/sKV/lib/db/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	log = logger.GetLogger("replication")

	publishedTotal = metrics.NewCounter("skv_replication_published_total")
	deliveredTotal = metrics.NewCounter("skv_replication_delivered_total")
	failedTotal    = metrics.NewCounter("skv_replication_failed_total")
	droppedTotal   = metrics.NewCounter("skv_replication_dropped_total")
)

// Options configures a Publisher
type Options struct {
	Timeout    time.Duration // per delivery, default 5s
	BufferSize int           // queued notifications per peer, default 1024
}

// Publisher fans out notifications to all known peers.
//
// Publish never blocks: notifications are pushed onto an unbounded queue that a
// single dispatcher drains into one bounded buffer per peer. Each peer has its
// own worker, so notifications reach a peer in publish order and a slow peer
// does not delay the others. Deliveries are attempted once.
type Publisher struct {
	sink Sink
	opts Options

	queue *util.LockFreeMPSC[Notification]

	mu     sync.RWMutex
	peers  map[string]*peer
	order  []string
	closed bool

	wg         sync.WaitGroup
	dispatched chan struct{}
}

type peer struct {
	addr   string
	buffer chan Notification
}

// NewPublisher creates a publisher and starts its dispatcher.
func NewPublisher(sink Sink, opts Options) *Publisher {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}

	p := &Publisher{
		sink:       sink,
		opts:       opts,
		queue:      util.NewLockFreeMPSC[Notification](),
		peers:      make(map[string]*peer),
		dispatched: make(chan struct{}),
	}

	go p.dispatch()
	return p
}

// Publish queues n for delivery to all peers known at dispatch time.
// Returns false if the publisher is closed.
func (p *Publisher) Publish(n Notification) bool {
	if !p.queue.Push(&n) {
		return false
	}
	publishedTotal.Inc()
	return true
}

// AddNode registers a peer. Returns false if the address is already known or empty.
func (p *Publisher) AddNode(addr string) bool {
	if addr == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	if _, ok := p.peers[addr]; ok {
		return false
	}

	pe := &peer{
		addr:   addr,
		buffer: make(chan Notification, p.opts.BufferSize),
	}
	p.peers[addr] = pe
	p.order = append(p.order, addr)

	p.wg.Add(1)
	go p.work(pe)

	log.Infof("added replication peer %s", addr)
	return true
}

// Nodes returns the known peers in the order they were added
func (p *Publisher) Nodes() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	nodes := make([]string, len(p.order))
	copy(nodes, p.order)
	return nodes
}

// dispatch copies every queued notification into the buffer of each peer
func (p *Publisher) dispatch() {
	defer close(p.dispatched)

	for n := range p.queue.Recv() {
		p.mu.RLock()
		for _, addr := range p.order {
			pe := p.peers[addr]
			select {
			case pe.buffer <- *n:
			default:
				droppedTotal.Inc()
				log.Warningf("replication buffer of %s is full, dropping %s %q", addr, n.Op, n.Key)
			}
		}
		p.mu.RUnlock()
	}
}

// work delivers notifications to a single peer
func (p *Publisher) work(pe *peer) {
	defer p.wg.Done()

	for n := range pe.buffer {
		ctx, cancel := context.WithTimeout(context.Background(), p.opts.Timeout)
		err := p.sink.Deliver(ctx, pe.addr, n)
		cancel()

		if err != nil {
			failedTotal.Inc()
			log.Warningf("replication of %s %q to %s failed: %v", n.Op, n.Key, pe.addr, err)
			continue
		}
		deliveredTotal.Inc()
	}
}

// Close stops accepting notifications, delivers what is already queued and waits
// for all peer workers to finish.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.queue.Close()
	<-p.dispatched

	p.mu.Lock()
	for _, pe := range p.peers {
		close(pe.buffer)
	}
	p.mu.Unlock()

	p.wg.Wait()
}
