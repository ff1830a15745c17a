package analysis

import (
	"errors"

	"github.com/nao1215/domaindive/internal/domain"
)

var (
	// ErrInvalidDomain is returned when the input does not normalize to a
	// valid domain. Nothing is read, probed or written in that case.
	ErrInvalidDomain = domain.ErrInvalidDomain

	// ErrStoreUnavailable wraps any failure to read or write the analysis
	// store. Probe failures never produce it.
	ErrStoreUnavailable = errors.New("analysis store unavailable")
)
