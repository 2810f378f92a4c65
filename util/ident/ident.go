// Package ident builds stable identifiers out of labelled fields.
package ident

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// Builder accumulates (field:value) pairs. The same fields in the same order always give
// the same String and Hash.
type Builder struct {
	buf bytes.Buffer
}

func With(field string, value interface{}) *Builder {
	return new(Builder).With(field, value)
}

func (b *Builder) With(field string, value interface{}) *Builder {
	fmt.Fprintf(&b.buf, "(%v:%v)", field, value)
	return b
}

// Hash is the hex md5 of String.
func (b *Builder) Hash() string {
	sum := md5.Sum(b.buf.Bytes())
	return hex.EncodeToString(sum[:])
}

func (b *Builder) String() string {
	return b.buf.String()
}
