// Copyright (c) The GoTEE-spm authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"golang.org/x/term"
)

// TermWriter colors output written through a terminal instance, it is used
// to tell partition originated output apart from monitor output.
type TermWriter struct {
	// Term is the terminal instance
	Term *term.Terminal
	// Color is the escape sequence applied to each write
	Color []byte
}

// Write implements io.Writer.
func (w *TermWriter) Write(p []byte) (n int, err error) {
	w.Term.Write(w.Color)
	defer w.Term.Write(w.Term.Escape.Reset)

	return w.Term.Write(p)
}
