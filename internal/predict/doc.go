// Ceema - Movie Affinity Prediction Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ceema

/*
Package predict turns a prediction request into model scores.

A request names one user and an ordered list of movies. Handler resolves the
user through the user index and each movie through the item index, calls the
Scorer once with two aligned position arrays, and zips the scores back onto
the requested movie identifiers in request order.

# Failure kinds

  - ErrUnknownUser: the user is not in the index. The Scorer is not called.
  - *UnresolvedItemError: a movie is not in the index and the policy is
    PolicyFailRequest.
  - ErrOverloaded: no admission slot became free within AdmissionWait.
  - *InternalError: everything else, including Scorer failures, timeouts and
    score count mismatches. Its message is the underlying error text.

# Unresolved movies

What happens to a movie the item index does not know is chosen by
UnresolvedPolicy:

  - PolicyPassThrough sends Sentinel (-1) to the Scorer and returns whatever
    score comes back. This is what the Keras service did.
  - PolicyFailRequest rejects the request and names the unknown movies.
  - PolicyDrop leaves the movie out of the Scorer call and the response.

# Concurrency

Handler is safe for concurrent use. Each request reads the index snapshot
once, so a reload that lands mid-request is not observed until the next one.
At most MaxConcurrent Scorer calls are in flight; a call that outlives
ScorerTimeout is abandoned but keeps its admission slot until it returns.
*/
package predict
