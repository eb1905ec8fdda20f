package runtime

import "log/slog"

// CancelFunc tears a stream down. Safe to invoke more than once.
type CancelFunc func()

// Snapshots turns a raw subscription into a typed snapshot stream:
// one snapshot is delivered immediately, then a fresh one per publish
// signal. Fetch failures are logged and skipped; the stream itself
// only ends on cancellation. After the returned cancel, no further
// snapshot is delivered and the channel is closed.
func Snapshots[T any](sub *Subscription, log *slog.Logger, fetch func() (T, error)) (<-chan T, CancelFunc) {
	out := make(chan T, 1)
	go func() {
		defer close(out)

		deliver := func() bool {
			snapshot, err := fetch()
			if err != nil {
				log.Warn("snapshot fetch failed", "topic", string(sub.topic), "error", err)
				return true
			}
			select {
			case out <- snapshot:
				return true
			case <-sub.Done():
				return false
			}
		}

		if !deliver() {
			return
		}
		for {
			select {
			case <-sub.Done():
				return
			case <-sub.signal:
				if !deliver() {
					return
				}
			}
		}
	}()
	return out, sub.Cancel
}
