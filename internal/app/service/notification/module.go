package notification

import (
	"context"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

func newLookup(db *gorm.DB) DetailsLookup { return NewGormDetailsLookup(db) }

// registerDrain lets queued side effects finish before the DB pool closes.
func registerDrain(lc fx.Lifecycle, e *Emitter) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				e.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

var Module = fx.Options(
	fx.Provide(newLookup, NewEmitter),
	fx.Invoke(registerDrain),
)
