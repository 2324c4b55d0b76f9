package repository

// SourceKind selects where the pipeline reads daily prices from.
type SourceKind string

const (
	SourceYahoo     SourceKind = "yahoo"
	SourceWarehouse SourceKind = "warehouse"
	SourceCSV       SourceKind = "csv"
)

// IsValidSourceKind returns true if k is a supported price source.
func IsValidSourceKind(k SourceKind) bool {
	switch k {
	case SourceYahoo, SourceWarehouse, SourceCSV:
		return true
	default:
		return false
	}
}

// DefaultSourceKind returns the default price source.
func DefaultSourceKind() SourceKind { return SourceYahoo }

// NormalizeSourceKind converts raw string to a valid source kind (or default).
func NormalizeSourceKind(s string) SourceKind {
	if s == "" {
		return DefaultSourceKind()
	}
	k := SourceKind(s)
	if IsValidSourceKind(k) {
		return k
	}
	return DefaultSourceKind()
}
