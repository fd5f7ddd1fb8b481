package ble

import (
	"time"

	"go.uber.org/zap"
)

// StartKeepalive launches the liveness sweep. Repeated calls are no-ops;
// only one sweep goroutine ever runs per manager.
func (m *Manager) StartKeepalive() {
	if m.opts.DisableKeepalive {
		return
	}
	m.keepaliveOnce.Do(func() {
		m.logger.Info("Starting keepalive sweep",
			zap.Duration("interval", m.opts.KeepaliveInterval))
		go m.keepaliveLoop()
	})
}

// StopKeepalive cancels the sweep and waits for it to exit. Safe to call
// even if the sweep never started.
func (m *Manager) StopKeepalive() {
	m.keepaliveCancel()

	// The goroutine only exists after StartKeepalive; firing the Once here
	// guarantees keepaliveDone gets closed either way.
	m.keepaliveOnce.Do(func() {
		close(m.keepaliveDone)
	})
	<-m.keepaliveDone
}

func (m *Manager) keepaliveLoop() {
	defer close(m.keepaliveDone)

	ticker := time.NewTicker(m.opts.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.keepaliveCtx.Done():
			m.logger.Info("Keepalive sweep stopped")
			return
		case <-ticker.C:
			m.sweepOnce()
		}
	}
}

// sweepOnce checks every registered device and heals the ones whose link
// has gone quiet, replaying their last display state after a successful
// reconnect.
func (m *Manager) sweepOnce() {
	ctx := m.keepaliveCtx

	for _, name := range m.registeredNames() {
		m.mu.RLock()
		entry, ok := m.devices[name]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		if entry.conn.Connected(ctx) {
			continue
		}

		m.logger.Warn("Keepalive: device disconnected, reconnecting",
			zap.String("device", name))

		entry.mu.Lock()
		if err := entry.conn.Reconnect(ctx); err != nil {
			entry.mu.Unlock()
			m.logger.Error("Keepalive: reconnect failed",
				zap.String("device", name),
				zap.Error(err))
			continue
		}

		m.notify(name, "reconnected")

		cmd, tiles := m.replay.state(name)
		switch {
		case tiles != nil:
			m.logger.Info("Keepalive: restoring image tiles",
				zap.String("device", name),
				zap.Int("tiles", len(tiles)))
			for _, tile := range tiles {
				if err := entry.conn.Write(ctx, tile.Encode()); err != nil {
					m.logger.Warn("Keepalive: tile restore failed",
						zap.String("device", name),
						zap.Error(err))
					break
				}
			}
		case cmd != nil:
			m.logger.Info("Keepalive: restoring last display",
				zap.String("device", name))
			if err := entry.conn.Write(ctx, cmd.Encode()); err != nil {
				m.logger.Warn("Keepalive: display restore failed",
					zap.String("device", name),
					zap.Error(err))
			}
		}
		entry.mu.Unlock()
	}
}
