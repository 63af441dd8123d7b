package semaforo

// Aggregate applies DefaultRules.Aggregate.
func Aggregate(docs []Document) AggregateResult {
	return DefaultRules.Aggregate(docs)
}

// Aggregate rolls an organization's documents into one AggregateResult.
// Inactive documents are ignored. It never fails: missing or malformed input
// degrades to Red.
func (r Rules) Aggregate(docs []Document) AggregateResult {
	reps := SelectRepresentatives(docs)
	orgChart := reps[CategoryOrgChart]

	result := AggregateResult{PerCategory: make([]CategoryStatus, 0, len(Categories))}
	for _, c := range Categories {
		doc := reps[c]
		if c.IsOptional() && doc == nil {
			continue
		}
		var st Status
		if c == CategoryBylaws {
			st = r.EvaluateRegulatory(doc, orgChart)
		} else {
			st = r.EvaluateByDate(doc)
		}
		result.PerCategory = append(result.PerCategory, CategoryStatus{Category: c, Status: st})
	}
	result.HasServicesManual = reps[CategoryServicesManual] != nil

	statuses := make([]Status, len(result.PerCategory))
	for i, cs := range result.PerCategory {
		statuses[i] = cs.Status
	}
	result.Overall = Worst(statuses...)
	result.Message = evaluatedMessage(len(result.PerCategory))
	return result
}

// SelectRepresentatives picks at most one active document per category: the
// most recently updated one. Ties fall back to creation time, then ID, so the
// choice does not depend on input order.
func SelectRepresentatives(docs []Document) map[Category]*Document {
	reps := make(map[Category]*Document, len(Categories))
	for i := range docs {
		d := &docs[i]
		if !d.Active || !d.Category.IsValid() {
			continue
		}
		if cur, ok := reps[d.Category]; !ok || newer(d, cur) {
			reps[d.Category] = d
		}
	}
	return reps
}

func newer(a, b *Document) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}
