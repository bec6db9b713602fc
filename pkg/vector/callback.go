package vector

import "go.uber.org/atomic"

// SchemaChangeCallBack is raised by a reader that discovers a nested schema
// change. The owner of the output checks and resets it once per batch.
type SchemaChangeCallBack struct {
	changed atomic.Bool
}

func (c *SchemaChangeCallBack) DoWork() {
	c.changed.Store(true)
}

func (c *SchemaChangeCallBack) GetSchemaChangedAndReset() bool {
	return c.changed.Swap(false)
}
