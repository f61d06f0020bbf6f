package id

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator hands out time-ordered snowflake IDs for a single node.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator creates a Generator for nodeID, which must be in [0, 1023].
func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// Next returns a new unique ID.
func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}
