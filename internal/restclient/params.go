package restclient

import (
	"fmt"
	"io"

	"github.com/adlsfs/adlsfs/pkg/errors"
)

// Params carries the query parameters for one Call, plus an optional request
// body. Data is buffered in memory; Stream lets a caller hand over an
// io.Reader for large uploads without a prior full buffer.
type Params struct {
	Query  map[string]string
	Data   []byte
	Stream io.Reader
}

func validateParams(op Op, p Params) (opSpec, error) {
	spec, ok := operationTable[op]
	if !ok {
		return opSpec{}, errors.NewError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("unknown operation %q", op)).WithComponent("restclient")
	}

	for name := range p.Query {
		_, required := spec.required[name]
		_, allowed := spec.allowed[name]
		if !required && !allowed {
			return opSpec{}, errors.NewError(errors.ErrCodeValidationFailed,
				fmt.Sprintf("parameter %q is not valid for operation %q", name, op)).
				WithComponent("restclient").WithOperation(string(op))
		}
	}

	for name := range spec.required {
		if _, ok := p.Query[name]; !ok {
			return opSpec{}, errors.NewError(errors.ErrCodeValidationFailed,
				fmt.Sprintf("operation %q requires parameter %q", op, name)).
				WithComponent("restclient").WithOperation(string(op))
		}
	}

	return spec, nil
}
