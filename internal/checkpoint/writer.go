package checkpoint

import (
	"errors"
	"sync"

	"github.com/lamim/talentradar/pkg/models"
)

var errWriterClosed = errors.New("checkpoint writer is closed")

// AsyncWriter queues checkpoint saves on a background goroutine so a round
// does not block on disk I/O. Each queued state is a deep copy.
type AsyncWriter struct {
	store *Store

	writeChan  chan *models.TaskState
	stopWriter chan struct{}
	writeWg    sync.WaitGroup

	mu          sync.Mutex
	closed      bool
	writerError error
}

// NewAsyncWriter starts the background writer
func NewAsyncWriter(store *Store, buffer int) *AsyncWriter {
	if buffer < 1 {
		buffer = 10
	}
	w := &AsyncWriter{
		store:      store,
		writeChan:  make(chan *models.TaskState, buffer),
		stopWriter: make(chan struct{}),
	}
	w.start()
	return w
}

func (w *AsyncWriter) start() {
	w.writeWg.Add(1)
	go func() {
		defer w.writeWg.Done()
		for {
			select {
			case state := <-w.writeChan:
				w.write(state)
			case <-w.stopWriter:
				// Drain remaining writes before stopping
				for len(w.writeChan) > 0 {
					w.write(<-w.writeChan)
				}
				return
			}
		}
	}()
}

func (w *AsyncWriter) write(state *models.TaskState) {
	if !w.store.Save(state) {
		w.mu.Lock()
		w.writerError = errors.New("failed to save checkpoint for " + state.TaskID)
		w.mu.Unlock()
	}
}

// Enqueue queues a copy of the state for writing. When the queue is full it
// waits for space, so snapshots are saved in the order they were queued.
func (w *AsyncWriter) Enqueue(state *models.TaskState) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errWriterClosed
	}
	w.mu.Unlock()

	cp := state.Clone()
	select {
	case w.writeChan <- cp:
		return nil
	default:
		w.store.logger.Debug("Checkpoint write buffer full, waiting", "task_id", cp.TaskID)
	}
	select {
	case w.writeChan <- cp:
		return nil
	case <-w.stopWriter:
		return errWriterClosed
	}
}

// Close drains pending writes and stops the writer. It returns the last
// background write error, if any.
func (w *AsyncWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		err := w.writerError
		w.mu.Unlock()
		return err
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stopWriter)
	w.writeWg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writerError
}
