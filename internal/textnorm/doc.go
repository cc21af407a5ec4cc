// Package textnorm cleans text extracted from HTML documents.
//
// The crawler runs every title and content region through Normalize
// before filters see it and before it is stored, so required-text
// matching operates on the same text that ends up in the output.
package textnorm
