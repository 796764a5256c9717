package reconcile

// Normalization pairs a reference as written with its canonical spelling.
type Normalization struct {
	Original  string `json:"original" yaml:"original"`
	Canonical string `json:"canonical" yaml:"canonical"`
}

// LookupError records a store failure hit while resolving one reference.
type LookupError struct {
	Reference string
	Err       error
}

func (e LookupError) Error() string {
	return e.Reference + ": " + e.Err.Error()
}

func (e LookupError) Unwrap() error { return e.Err }

// Report is the outcome of one reconciliation pass. It is built once and
// never modified; accessors return copies. Iteration order is the order in
// which references first appear in the document.
type Report struct {
	references int
	dead       []string
	deadSet    map[string]struct{}
	norms      []Normalization
	normIndex  map[string]int
	lookupErrs []LookupError
}

func newReport() *Report {
	return &Report{
		deadSet:   make(map[string]struct{}),
		normIndex: make(map[string]int),
	}
}

// References is the number of distinct references found in the document.
func (r *Report) References() int { return r.references }

// Empty reports whether the pass found nothing to act on.
func (r *Report) Empty() bool {
	return len(r.dead) == 0 && len(r.norms) == 0
}

// Dead returns the unresolved references as originally written.
func (r *Report) Dead() []string {
	return append([]string(nil), r.dead...)
}

// IsDead reports whether ref, as originally written, is unresolved.
func (r *Report) IsDead(ref string) bool {
	_, ok := r.deadSet[ref]
	return ok
}

// Normalizations returns the original → canonical pairs that differ.
func (r *Report) Normalizations() []Normalization {
	return append([]Normalization(nil), r.norms...)
}

// NormalizationMap returns the normalizations keyed by original reference.
func (r *Report) NormalizationMap() map[string]string {
	m := make(map[string]string, len(r.norms))
	for _, n := range r.norms {
		m[n.Original] = n.Canonical
	}
	return m
}

// Canonical returns the suggested spelling for ref when it differs.
func (r *Report) Canonical(ref string) (string, bool) {
	i, ok := r.normIndex[ref]
	if !ok {
		return "", false
	}
	return r.norms[i].Canonical, true
}

// Suggested returns the canonical form of ref, or ref itself when the rules
// leave it unchanged.
func (r *Report) Suggested(ref string) string {
	if c, ok := r.Canonical(ref); ok {
		return c
	}
	return ref
}

// LookupErrors returns the store failures met during the pass. References
// listed here are reported dead.
func (r *Report) LookupErrors() []LookupError {
	return append([]LookupError(nil), r.lookupErrs...)
}

func (r *Report) addDead(ref string) {
	if _, ok := r.deadSet[ref]; ok {
		return
	}
	r.deadSet[ref] = struct{}{}
	r.dead = append(r.dead, ref)
}

func (r *Report) addNormalization(original, canonical string) {
	if _, ok := r.normIndex[original]; ok {
		return
	}
	r.normIndex[original] = len(r.norms)
	r.norms = append(r.norms, Normalization{Original: original, Canonical: canonical})
}

// settle keeps only the dead references for which keep returns true,
// preserving order.
func (r *Report) settle(keep func(ref string) bool) {
	kept := r.dead[:0]
	for _, ref := range r.dead {
		if keep(ref) {
			kept = append(kept, ref)
			continue
		}
		delete(r.deadSet, ref)
	}
	r.dead = kept
}
