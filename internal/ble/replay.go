package ble

import (
	"sync"

	"github.com/glowlink/glowlink/pkg/protocol"
)

// replayCache remembers, per device, what was last successfully displayed
// so the keepalive sweep can restore the screen after a silent reconnect.
// A device holds either one composite command or one image-tile sequence,
// never both; recording one form erases the other.
type replayCache struct {
	mu       sync.Mutex
	commands map[string]protocol.Command
	tiles    map[string][]protocol.Command
}

func newReplayCache() *replayCache {
	return &replayCache{
		commands: make(map[string]protocol.Command),
		tiles:    make(map[string][]protocol.Command),
	}
}

// saveCommand records cmd as the device's replay state.
func (c *replayCache) saveCommand(device string, cmd protocol.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[device] = cmd
	delete(c.tiles, device)
}

// saveTiles records a completed image-tile sequence as the device's replay
// state.
func (c *replayCache) saveTiles(device string, tiles []protocol.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiles[device] = tiles
	delete(c.commands, device)
}

// state returns whichever replay form the device holds. At most one of the
// two returns is non-nil.
func (c *replayCache) state(device string) (protocol.Command, []protocol.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tiles, ok := c.tiles[device]; ok {
		return nil, tiles
	}
	return c.commands[device], nil
}

func (c *replayCache) forget(device string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.commands, device)
	delete(c.tiles, device)
}
