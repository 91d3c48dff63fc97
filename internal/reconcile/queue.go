package reconcile

import (
	"log/slog"
	"sync"

	"rolegate/lib/sl"
)

// GuildQueue serializes event processing per guild: all join, invite-create
// and invite-delete work for one guild runs on a single worker goroutine in
// submission order, so a join's fetch-diff-replace cycle never interleaves
// with another event for the same guild. Different guilds proceed
// independently.
type GuildQueue struct {
	mu      sync.Mutex
	workers map[string]chan func()
	wg      sync.WaitGroup // running workers
	senders sync.WaitGroup // in-flight Submit calls, registered under mu
	closed  bool
	log     *slog.Logger
}

// queueDepth bounds in-flight events per guild. Submissions beyond it block
// the gateway dispatch goroutine, which is acceptable back-pressure for a
// join burst.
const queueDepth = 64

func NewGuildQueue(log *slog.Logger) *GuildQueue {
	return &GuildQueue{
		workers: make(map[string]chan func()),
		log:     log.With(sl.Module("reconcile.queue")),
	}
}

// Submit enqueues a task on the guild's worker, starting the worker on
// first use. Tasks submitted after Close are dropped with a log. The send
// happens outside the mutex so a full buffer only blocks this guild's
// submitter; Close waits for in-flight senders before closing any channel.
func (q *GuildQueue) Submit(guildID string, task func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.log.Warn("queue closed, dropping event", slog.String("guild_id", guildID))
		return
	}
	tasks, ok := q.workers[guildID]
	if !ok {
		tasks = make(chan func(), queueDepth)
		q.workers[guildID] = tasks
		q.wg.Add(1)
		go q.run(guildID, tasks)
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	tasks <- task
}

func (q *GuildQueue) run(guildID string, tasks <-chan func()) {
	defer q.wg.Done()
	for task := range tasks {
		task()
	}
	q.log.Debug("worker stopped", slog.String("guild_id", guildID))
}

// Close stops accepting tasks and waits for all queued work to finish.
// Senders that passed the closed check are waited out before the channels
// close, so a Submit racing Close can never hit a closed channel; workers
// keep draining in the meantime, which unblocks any sender stuck on a full
// buffer.
func (q *GuildQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.senders.Wait()

	q.mu.Lock()
	for _, tasks := range q.workers {
		close(tasks)
	}
	q.mu.Unlock()

	q.wg.Wait()
}
