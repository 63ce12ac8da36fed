package dicomdir

// Kind classifies why a drop could not be ingested.
type Kind int

const (
	// Unsupported means the platform cannot resolve dropped items.
	Unsupported Kind = iota + 1
	// Malformed means the drop is not a DICOM directory at all.
	Malformed
	// Corrupt means the drop looks right but the DICOMDIR does not hold up.
	Corrupt
)

func (k Kind) String() string {
	switch k {
	case Unsupported:
		return "unsupported"
	case Malformed:
		return "malformed"
	case Corrupt:
		return "corrupt"
	}
	return "unknown"
}

func (k Kind) message() string {
	switch k {
	case Unsupported:
		return "incompatible platform"
	case Malformed:
		return "upload does not look like a DICOM directory"
	case Corrupt:
		return "upload has a corrupt DICOMDIR"
	}
	return "dicomdir error"
}

// Error is returned for every ingest failure that has a Kind.
type Error struct {
	Kind Kind
	Err  error
}

var (
	ErrUnsupported = &Error{Kind: Unsupported}
	ErrMalformed   = &Error{Kind: Malformed}
	ErrCorrupt     = &Error{Kind: Corrupt}
)

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.message()
	}
	return e.Kind.message() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
