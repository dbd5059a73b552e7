package xref

// Report summarizes how the registered targets were used by one build.
type Report struct {
	Targets      int            `json:"targets"`
	Usages       int            `json:"usages"`
	Resolved     int            `json:"resolved"`
	Citations    map[string]int `json:"citations"`
	Unreferenced []string       `json:"unreferenced"`
	Dangling     []Resolution   `json:"dangling"`
}

// BuildReport counts citations per target and lists the targets nobody
// references and the usages that did not resolve.
func BuildReport(reg *Registry, resolutions []Resolution) Report {
	rep := Report{
		Targets:      reg.Len(),
		Usages:       len(resolutions),
		Citations:    make(map[string]int),
		Unreferenced: []string{},
		Dangling:     []Resolution{},
	}
	for _, r := range resolutions {
		if !r.Resolved {
			rep.Dangling = append(rep.Dangling, r)
			continue
		}
		rep.Resolved++
		rep.Citations[r.TargetSemanticID]++
	}
	for _, it := range reg.Items() {
		if rep.Citations[it.SemanticID] == 0 {
			rep.Unreferenced = append(rep.Unreferenced, it.SemanticID)
		}
	}
	return rep
}
