// Package batch handles the tool-call webhook envelope used by voice
// platforms.
//
// An envelope carries a list of function calls. Dispatcher runs each call
// through the handler registered for its function name and answers with one
// Result per call, where the result is a JSON document encoded as a string.
// A failing or unknown call becomes an error descriptor without failing the
// rest of the batch.
//
// ParseStringOrArray and StringList accept list parameters in the loose
// shapes agents tend to produce.
package batch
