package service

import (
	"io"
	"strings"
)

type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
	KindOther
)

// Field is one request attribute with enough shape information to tell
// "absent" from "null" and a JSON number from a string.
type Field struct {
	Present bool
	Null    bool
	Value   string
	Kind    FieldKind
}

// Text builds a present string field. Blank strings count as null.
func Text(v string) Field {
	return Field{Present: true, Null: strings.TrimSpace(v) == "", Value: v, Kind: KindString}
}

func Number(v string) Field {
	return Field{Present: true, Value: v, Kind: KindNumber}
}

func Null() Field {
	return Field{Present: true, Null: true}
}

func Other() Field {
	return Field{Present: true, Kind: KindOther}
}

func (f Field) Filled() bool { return f.Present && !f.Null }

type ProductInput struct {
	Name        Field
	Description Field
	Price       Field
	CategoryID  Field
	// Image is set when the image attribute arrived as something other than
	// a file, which is always rejected.
	Image Field
}

type CategoryInput struct {
	Name        Field
	Slug        Field
	Description Field
}

type Upload struct {
	Filename string
	Content  io.Reader
}
