package model

// Security is a tradeable instrument referenced by extracted transactions.
type Security struct {
	ISIN     string
	WKN      string
	Name     string
	Currency string
}

// SecurityRef carries whatever identification a statement printed for a
// security. At least one of ISIN, WKN or Name is set.
type SecurityRef struct {
	ISIN     string
	WKN      string
	Name     string
	Currency string
}

// Label returns the most specific human-readable identification.
func (s Security) Label() string {
	switch {
	case s.Name != "" && s.ISIN != "":
		return s.Name + " (" + s.ISIN + ")"
	case s.Name != "":
		return s.Name
	case s.ISIN != "":
		return s.ISIN
	default:
		return s.WKN
	}
}
