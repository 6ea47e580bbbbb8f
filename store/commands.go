package store

import (
	"errors"

	"github.com/plus3/cellquery/ecs"
)

// Commands buffers writes that are applied to a store at the end of a frame.
// This keeps the store unchanged while visualizers are reading from it.
type Commands struct {
	inserts []insertCommand
	logs    []logCommand
	defers  []deferCommand
}

// NewCommands creates an empty command buffer.
func NewCommands() *Commands {
	return &Commands{}
}

type insertCommand struct {
	entity ecs.EntityPath
	index  ecs.Index
	sets   []*ecs.ComponentInstances
}

type logCommand struct {
	entity    ecs.EntityPath
	time      ecs.TimeInt
	archetype ecs.Archetype
}

type deferCommand struct {
	fn func()
}

// Insert queues a row insertion.
func (c *Commands) Insert(entity ecs.EntityPath, index ecs.Index, sets ...*ecs.ComponentInstances) {
	c.inserts = append(c.inserts, insertCommand{entity: entity, index: index, sets: sets})
}

// Log queues an archetype log at time t.
func (c *Commands) Log(entity ecs.EntityPath, t ecs.TimeInt, a ecs.Archetype) {
	c.logs = append(c.logs, logCommand{entity: entity, time: t, archetype: a})
}

// Defer queues a function execution.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	return len(c.inserts) + len(c.logs) + len(c.defers)
}

// Flush applies all commands to the store in order: inserts, logs, then
// deferred functions, and resets the buffer. Every command is attempted; the
// failures are joined.
func (c *Commands) Flush(s *Store) error {
	var errs []error

	for _, cmd := range c.inserts {
		if err := s.Insert(cmd.entity, cmd.index, cmd.sets...); err != nil {
			errs = append(errs, err)
		}
	}

	for _, cmd := range c.logs {
		if _, err := s.LogArchetype(cmd.entity, cmd.time, cmd.archetype); err != nil {
			errs = append(errs, err)
		}
	}

	for _, df := range c.defers {
		df.fn()
	}

	c.inserts = c.inserts[:0]
	c.logs = c.logs[:0]
	c.defers = c.defers[:0]

	return errors.Join(errs...)
}
