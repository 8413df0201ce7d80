// Package utils provides value coercion helpers used when sanitizing
// attribute sets before commit: booleans and numerics arriving as strings
// from source documents are cast, and blank strings are coerced to nil.
package utils
