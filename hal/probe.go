package hal

import (
	"log"
	"time"

	"github.com/cenkalti/backoff"
)

// NewBus attempts to bind a Real Bus to native GPIO/I²C drivers,
// retrying briefly with the same exponential backoff comm.RemoteDevice
// uses for a flaky TCP dial, since a board that has just powered up may
// not have its device tree settled yet. On any binding failure -
// library absent, not running on target hardware, device not present -
// it installs a Mock instead. The rest of the kernel is unaware of
// which backend it holds; IsMock() is the only observable difference.
func NewBus() Bus {
	var real *Real
	op := func() error {
		r, err := NewReal()
		if err != nil {
			return err
		}
		real = r
		return nil
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         500 * time.Millisecond,
		MaxElapsedTime:      2 * time.Second,
		Clock:               backoff.SystemClock,
	})
	if err != nil || real == nil {
		log.Printf("hal: no real GPIO/I2C hardware found, falling back to mock: %v", err)
		return NewMock()
	}
	return real
}
