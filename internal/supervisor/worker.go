package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vmelnikov/statadmin/model"
)

const dialTimeout = 5 * time.Second

type worker struct {
	handle   string
	protocol string
	cfg      WorkerConfig
	cancel   context.CancelFunc
	done     chan struct{}
}

// run pushes filtered samples to the collector until the context is
// cancelled. A failed write drops the connection; the next tick redials.
func (w *worker) run(ctx context.Context, source SampleSource, logger *zap.SugaredLogger) {
	defer close(w.done)

	addr := net.JoinHostPort(w.cfg.TargetIP, strconv.Itoa(w.cfg.Port))
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	var conn net.Conn
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if conn == nil {
			c, err := net.DialTimeout(w.protocol, addr, dialTimeout)
			if err != nil {
				logger.Warnf("worker %s: dial %s %s: %v", w.cfg.Instance, w.protocol, addr, err)
				continue
			}
			conn = c
		}

		payload := w.render(source.Snapshot())
		if len(payload) == 0 {
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(dialTimeout))
		if _, err := conn.Write(payload); err != nil {
			logger.Warnf("worker %s: write %s: %v", w.cfg.Instance, addr, err)
			conn.Close()
			conn = nil
		}
	}
}

// render serializes the samples passing the worker's name filter, one
// "name value unix-ts" line per sample.
func (w *worker) render(samples []Sample) []byte {
	var buf bytes.Buffer
	for _, s := range samples {
		if !model.MatchName(w.cfg.Filter, model.SplitName(s.Name)) {
			continue
		}
		fmt.Fprintf(&buf, "%s %g %d\n", s.Name, s.Value, s.Taken.Unix())
	}
	return buf.Bytes()
}
