package numbering

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Document prefixes
const (
	PrefixJob           = "JOB"
	PrefixQuote         = "QTE"
	PrefixInvoice       = "INV"
	PrefixPurchaseOrder = "PO"
)

// Generator hands out unique, time-ordered document numbers
type Generator struct {
	node *snowflake.Node
}

// NewGenerator creates a generator for the given node id (0-1023)
func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// Next returns a number such as "INV-1541815603606036480"
func (g *Generator) Next(prefix string) string {
	return prefix + "-" + g.node.Generate().String()
}

// JobNumber returns a new job number
func (g *Generator) JobNumber() string { return g.Next(PrefixJob) }

// QuoteNumber returns a new quote number
func (g *Generator) QuoteNumber() string { return g.Next(PrefixQuote) }

// InvoiceNumber returns a new invoice number
func (g *Generator) InvoiceNumber() string { return g.Next(PrefixInvoice) }

// PurchaseOrderNumber returns a new purchase order number
func (g *Generator) PurchaseOrderNumber() string { return g.Next(PrefixPurchaseOrder) }
