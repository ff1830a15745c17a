// Package domain turns free-form user input into the canonical domain key
// used to store and look up analyses.
//
// Normalization is purely lexical: it trims whitespace, lowercases, removes
// one leading http:// or https:// scheme and one trailing slash. Validation
// runs on the normalized form and accepts only names that end in a dot
// followed by an alphabetic top-level domain of two or more letters.
package domain
