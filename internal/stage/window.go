package stage

// Window drops the first skip records and stops after first records when
// first is set. Upstream is not pulled once the window is full.
func Window(in Stream, skip int, first *int) Stream {
	return func(yield func(any, error) bool) {
		if first != nil && *first <= 0 {
			return
		}
		seen, taken := 0, 0
		for rec, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			if seen < skip {
				seen++
				continue
			}
			if !yield(rec, nil) {
				return
			}
			taken++
			if first != nil && taken >= *first {
				return
			}
		}
	}
}
