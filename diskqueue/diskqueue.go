// Package diskqueue provides a finny.Queue persisted to a goque (LevelDB)
// store, so events enqueued before a restart are dispatched after it.
package diskqueue

import (
	"errors"
	"fmt"

	"github.com/beeker1121/goque"
	"go.uber.org/zap"

	"github.com/matiu2/finny"
)

// Queue is a FIFO of encoded events on disk.
type Queue[E any, T comparable] struct {
	q     *goque.Queue
	codec Codec[E, T]
	log   *zap.SugaredLogger
}

var _ finny.Queue[struct{}, int] = (*Queue[struct{}, int])(nil)

// Open opens or creates the queue stored in dir. A nil log discards.
func Open[E any, T comparable](dir string, codec Codec[E, T], log *zap.SugaredLogger) (*Queue[E, T], error) {
	if codec == nil {
		return nil, errors.New("nil codec")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	q, err := goque.OpenQueue(dir)
	if err != nil {
		return nil, fmt.Errorf("open queue %s: %w", dir, err)
	}
	log.Debugw("Opened disk queue", "dir", dir, "length", q.Length())
	return &Queue[E, T]{q: q, codec: codec, log: log}, nil
}

func (q *Queue[E, T]) Enqueue(ev finny.Event[E, T]) error {
	data, err := q.codec.Encode(ev)
	if err != nil {
		return err
	}
	if _, err := q.q.Enqueue(data); err != nil {
		return fmt.Errorf("enqueue %v: %w", ev, err)
	}
	return nil
}

// Dequeue returns the oldest event. Items that fail to decode are logged
// and dropped.
func (q *Queue[E, T]) Dequeue() (finny.Event[E, T], bool) {
	for {
		item, err := q.q.Dequeue()
		if err != nil {
			if !errors.Is(err, goque.ErrEmpty) {
				q.log.Errorw("Failed to dequeue", "error", err)
			}
			return finny.Event[E, T]{}, false
		}
		ev, err := q.codec.Decode(item.Value)
		if err != nil {
			q.log.Errorw("Dropping undecodable event", "id", item.ID, "error", err)
			continue
		}
		return ev, true
	}
}

func (q *Queue[E, T]) Len() int { return int(q.q.Length()) }

// Close releases the store. The queued events stay on disk.
func (q *Queue[E, T]) Close() error {
	if err := q.q.Close(); err != nil {
		return fmt.Errorf("close queue: %w", err)
	}
	return nil
}

// Drop closes the queue and deletes its files.
func (q *Queue[E, T]) Drop() error {
	if err := q.q.Drop(); err != nil {
		return fmt.Errorf("drop queue: %w", err)
	}
	return nil
}
