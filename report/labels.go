package report

// DatasetLabels maps a dataset reference ("LD0/LLN0$RPT$Measurements") to its
// member labels in dataset order, as produced by the SCL collaborator. A
// mapping, once registered for a given reference, must not change: scl.Parse
// keeps the first DataSet it finds for a key, and the Client never modifies
// the map it is given.
type DatasetLabels map[string][]string

// AssignLabels fills in rpt.Entries[i].Label from labels[datasetRef], one
// label per dataset index, leaving entries blank if no mapping is registered
// or the index falls outside the mapped dataset's member count.
func AssignLabels(rpt *Report, labels DatasetLabels, datasetRef string) {
	mapping, ok := labels[datasetRef]
	if !ok {
		return
	}
	for i := range rpt.Entries {
		idx := rpt.Entries[i].Index
		if idx >= 0 && idx < len(mapping) {
			rpt.Entries[i].Label = mapping[idx]
		}
	}
}
