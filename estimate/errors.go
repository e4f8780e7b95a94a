package estimate

import "errors"

var errNilVector = errors.New("estimate: nil state or covariance")
