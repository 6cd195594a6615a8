package markov

// Stats holds aggregated statistics for a single chain.
type Stats struct {
	Order         int // The order of the chain.
	Contexts      int // The number of distinct contexts in the table.
	Transitions   int // The number of unique context->next links.
	TotalWeight   int // The sum of all link weights; the total number of trained windows.
	StartContexts int // The number of contexts eligible to start generation.
	VocabSize     int // The number of distinct items the chain has seen.
}

// Stats returns a snapshot of aggregate counts for the chain.
func (c *Chain[T]) Stats() Stats {
	s := Stats{
		Order:         c.order,
		Contexts:      len(c.table),
		StartContexts: len(c.starts),
		VocabSize:     len(c.items),
	}
	for _, d := range c.table {
		s.Transitions += len(d.choices)
		s.TotalWeight += d.total
	}
	return s
}
