package review

// Hydrate computes IsActive for each item from a persisted selection.
//
// When ok is false the selection was never written and every item is active.
// Otherwise an item is active exactly when its ID is in selected. Ids in
// selected that match no item are ignored. The result is a new slice; items
// is not modified.
func Hydrate(items []Resource, selected []string, ok bool) []Resource {
	out := make([]Resource, len(items))

	var set map[string]struct{}
	if ok {
		set = make(map[string]struct{}, len(selected))
		for _, id := range selected {
			set[id] = struct{}{}
		}
	}

	for i, item := range items {
		if !ok {
			item.IsActive = true
		} else {
			_, item.IsActive = set[item.ID]
		}
		out[i] = item
	}
	return out
}
