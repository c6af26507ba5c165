package reconcile

// categoryTable is the authoritative netuid -> category mapping, curated by
// hand. It wins over whatever tags the providers attach; tags are only a
// fallback for unlisted netuids.
var categoryTable = map[int]string{
	1: "Inference", 2: "Infrastructure", 3: "Training", 4: "Inference",
	5: "Data", 8: "Finance", 9: "Training", 11: "Social", 13: "Data",
	14: "Mining", 19: "Inference", 22: "Data", 23: "Creative", 25: "Research",
	27: "Infrastructure", 34: "Security", 37: "Training", 45: "AI Services",
	56: "Training", 64: "Inference", 66: "DevOps", 77: "DeFi", 85: "Code",
}

// resolveCategory applies the resolution chain: static table, first tag,
// literal "Unknown".
func resolveCategory(netuid int, tags []string) string {
	if cat, ok := categoryTable[netuid]; ok {
		return cat
	}
	if len(tags) > 0 && tags[0] != "" {
		return tags[0]
	}
	return "Unknown"
}
