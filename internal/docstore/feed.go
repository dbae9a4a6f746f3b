package docstore

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Finder выполняет запрос; реализации хранилища передают сюда свой Find.
type Finder func(ctx context.Context, q Query) ([]Document, error)

// Feed - общая механика живой подписки: по сигналу Notify запрос выполняется
// заново и обработчик получает полный снимок. Сигналы, пришедшие во время
// выполнения запроса, склеиваются в один.
type Feed struct {
	query   Query
	handler Handler
	find    Finder
	log     logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}
	closed atomic.Bool
	seq    uint64
}

// StartFeed запускает подписку и сразу доставляет первый снимок.
// Подписка завершается по Unsubscribe или при отмене ctx.
func StartFeed(ctx context.Context, q Query, h Handler, find Finder, log logrus.FieldLogger) *Feed {
	feedCtx, cancel := context.WithCancel(ctx)
	f := &Feed{
		query:   q,
		handler: h,
		find:    find,
		log:     log,
		ctx:     feedCtx,
		cancel:  cancel,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	f.wake <- struct{}{}
	go f.run()
	return f
}

func (f *Feed) Collection() string { return f.query.Collection }

// Notify сообщает, что коллекция изменилась.
func (f *Feed) Notify() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *Feed) Unsubscribe() {
	if f.closed.CompareAndSwap(false, true) {
		f.cancel()
	}
}

// Done закрывается, когда подписка окончательно остановлена.
func (f *Feed) Done() <-chan struct{} { return f.done }

func (f *Feed) run() {
	defer close(f.done)
	for {
		select {
		case <-f.ctx.Done():
			f.closed.Store(true)
			return
		case <-f.wake:
		}

		docs, err := f.find(f.ctx, f.query)
		if err != nil {
			if f.ctx.Err() == nil {
				f.log.WithError(err).WithField("collection", f.query.Collection).
					Warn("Подписка: не удалось обновить снимок")
			}
			continue
		}
		if f.closed.Load() {
			continue
		}
		f.seq++
		f.handler(Snapshot{Seq: f.seq, Docs: docs})
	}
}
