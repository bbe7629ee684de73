package debian

// Locate maps package names to the pool paths of their files.
//
// Names are de-duplicated first. Records are scanned in index order and the
// first record of each requested name that carries a Filename contributes
// its path; later records of the same name are ignored. Names without a
// record, or whose records have no Filename, are returned in missing, once
// each and in request order. Locate never fails.
func (idx *Index) Locate(names []string) (paths []string, missing []string) {
	requested := Dedupe(names)
	pending := NewSet(requested...)

	for _, rec := range idx.records {
		if len(pending) == 0 {
			break
		}
		if rec.Filename == "" || !pending.Has(rec.Name) {
			continue
		}
		paths = append(paths, rec.Filename)
		delete(pending, rec.Name)
	}

	for _, name := range requested {
		if pending.Has(name) {
			missing = append(missing, name)
		}
	}
	return paths, missing
}
