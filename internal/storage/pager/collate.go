package pager

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// LocaleKeyer turns a human-readable string into a byte-comparable sort key
// under a given locale's collation rules. The B-tree itself only ever
// compares keys with Go's native operators (cmp.Ordered), so locale-aware
// ordering cannot be injected as a custom comparator — instead, callers who
// want "café" to sort next to "cafe" under French collation rules run their
// keys through a LocaleKeyer before calling Insert/Search, and store the
// resulting string as the actual key. This mirrors how the teacher's own
// text-processing paths treat collation as a preprocessing step rather
// than a pluggable comparison function.
type LocaleKeyer struct {
	col *collate.Collator
	buf collate.Buffer
}

// NewLocaleKeyer builds a LocaleKeyer for the given BCP 47 locale tag, e.g.
// "fr" or "de-u-co-phonebk".
func NewLocaleKeyer(locale string) (*LocaleKeyer, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, err
	}
	return &LocaleKeyer{col: collate.New(tag)}, nil
}

// Key returns s's collation sort key as a string. Two inputs that compare
// equal under the keyer's locale produce identical keys; otherwise the
// native string ordering of the returned keys matches the locale's
// collation ordering of the inputs.
func (lk *LocaleKeyer) Key(s string) string {
	lk.buf.Reset()
	return string(lk.col.KeyFromString(&lk.buf, s))
}
