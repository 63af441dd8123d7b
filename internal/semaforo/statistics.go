package semaforo

// Counts tallies organizations per semaforo bucket. Orange never reaches the
// cache, so there is no Orange bucket; a stray Orange counts as Rojo.
type Counts struct {
	Total    int `json:"total"`
	Verde    int `json:"verde"`
	Amarillo int `json:"amarillo"`
	Rojo     int `json:"rojo"`
}

func (c *Counts) add(s Status) {
	c.Total++
	switch s.Folded() {
	case StatusGreen:
		c.Verde++
	case StatusYellow:
		c.Amarillo++
	default:
		c.Rojo++
	}
}

// Statistics is the global and per-type tally of cached statuses.
type Statistics struct {
	Counts
	PerType map[OrgType]Counts `json:"per_type"`
}

// StatisticsEntry is one organization's cached status as read for reporting.
type StatisticsEntry struct {
	Type     OrgType
	Semaforo Status
}

// ReduceStatistics folds cached statuses into counts. It reads only what it is
// given; callers pass the cached values, never recomputed ones.
func ReduceStatistics(entries []StatisticsEntry) Statistics {
	stats := Statistics{PerType: make(map[OrgType]Counts)}
	for _, e := range entries {
		stats.Counts.add(e.Semaforo)
		perType := stats.PerType[e.Type]
		perType.add(e.Semaforo)
		stats.PerType[e.Type] = perType
	}
	return stats
}
