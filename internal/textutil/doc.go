// Package textutil provides filename and token sanitization for
// client-supplied text that ends up in storage keys and paths.
package textutil
