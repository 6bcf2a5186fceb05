package entities

import "strings"

// SelectOptions narrows a batch to part of the input table.
type SelectOptions struct {
	// Names keeps only records whose name matches one entry, case-insensitive.
	Names []string
	// FreeWords keeps records whose name contains every word.
	FreeWords string
}

// Select returns the records matching opt, in input order. Records with an
// empty name are kept so that they still show up as rejected.
func Select(records []Record, opt SelectOptions) []Record {
	wanted := map[string]struct{}{}
	for _, n := range opt.Names {
		if n = strings.ToLower(NormalizeName(n)); n != "" {
			wanted[n] = struct{}{}
		}
	}
	words := strings.Fields(strings.ToLower(opt.FreeWords))
	if len(wanted) == 0 && len(words) == 0 {
		return records
	}

	var out []Record
	for _, r := range records {
		name := strings.ToLower(r.Name)
		if name == "" {
			out = append(out, r)
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[name]; !ok {
				continue
			}
		}
		ok := true
		for _, w := range words {
			if !strings.Contains(name, w) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}
