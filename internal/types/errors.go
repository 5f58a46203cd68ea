package types

import "errors"

var ErrNotFound = errors.New("requested item not found")
var ErrValidation = errors.New("invalid request payload")
var ErrUnauthenticated = errors.New("authentication required or invalid credentials")

// Engine degradation sentinels. These never reach a caller directly: the
// recommendation service absorbs them and downgrades the response instead.
var ErrHistoryUnavailable = errors.New("history store unavailable")
var ErrSearchFailed = errors.New("external place search failed")
var ErrReasoningTimeout = errors.New("reasoning call exceeded deadline")
var ErrReasoningUnavailable = errors.New("reasoning backend unavailable")
var ErrNoCandidates = errors.New("no candidates found for query")
