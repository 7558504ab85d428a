package engine

import "errors"

// ErrStagingDisabled is returned by the staging paths when the engine
// was built without a staged-order store.
var ErrStagingDisabled = errors.New("staging store not configured")
