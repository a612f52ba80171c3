// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package roap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// XMLHeader is the declaration that starts every request envelope.
const XMLHeader = `<?xml version="1.0" encoding="utf-8"?>`

// Keys used for attributes and mixed text in a decoded Document.
const (
	AttrKey = "$"
	TextKey = "_"
)

// Param is a single envelope parameter. Value must be a scalar.
type Param struct {
	Key   string
	Value any
}

// Params is an ordered parameter list. The order is the order of the
// emitted XML children.
type Params []Param

// With returns a copy of p with key=value appended.
func (p Params) With(key string, value any) Params {
	out := make(Params, len(p), len(p)+1)
	copy(out, p)
	return append(out, Param{Key: key, Value: value})
}

// Get returns the value stored under key.
func (p Params) Get(key string) (any, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return nil, false
}

// Encoder turns an operation group and its parameters into a request body.
type Encoder func(group string, params Params) (string, error)

// Encode writes params as an XML envelope rooted at an element named group.
// Text content is escaped. Output is deterministic for identical input.
func Encode(group string, params Params) (string, error) {
	const op = "encode"

	if !isXMLName(group) {
		return "", encodingError(op, fmt.Errorf("invalid root element name %q", group))
	}

	var b strings.Builder
	b.WriteString(XMLHeader)
	b.WriteString("<" + group + ">")

	seen := make(map[string]struct{}, len(params))
	for _, param := range params {
		if !isXMLName(param.Key) {
			return "", encodingError(op, fmt.Errorf("invalid parameter name %q", param.Key))
		}
		if _, dup := seen[param.Key]; dup {
			return "", encodingError(op, fmt.Errorf("duplicate parameter %q", param.Key))
		}
		seen[param.Key] = struct{}{}

		text, err := FormatScalar(param.Value)
		if err != nil {
			return "", encodingError(op, fmt.Errorf("parameter %q: %w", param.Key, err))
		}
		if err := checkXMLChars(text); err != nil {
			return "", encodingError(op, fmt.Errorf("parameter %q: %w", param.Key, err))
		}

		b.WriteString("<" + param.Key + ">")
		// strings.Builder never fails a write
		_ = xml.EscapeText(&b, []byte(text))
		b.WriteString("</" + param.Key + ">")
	}

	b.WriteString("</" + group + ">")
	return b.String(), nil
}

// FormatScalar converts a parameter value to its text form. Strings, booleans,
// integers and floats (including named types built on them) are accepted.
// Pointers, structs and containers are rejected, even when they implement
// fmt.Stringer.
func FormatScalar(v any) (string, error) {
	if v == nil {
		return "", errors.New("nil value")
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	}

	return "", fmt.Errorf("non-scalar value of type %T", v)
}

func isXMLName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	// names starting with "xml" are reserved
	return !strings.HasPrefix(strings.ToLower(name), "xml")
}

func checkXMLChars(s string) error {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				return fmt.Errorf("invalid UTF-8 at byte %d", i)
			}
		}
		valid := r == 0x09 || r == 0x0A || r == 0x0D ||
			(r >= 0x20 && r <= 0xD7FF) ||
			(r >= 0xE000 && r <= 0xFFFD) ||
			(r >= 0x10000 && r <= 0x10FFFF)
		if !valid {
			return fmt.Errorf("character %U not allowed in XML", r)
		}
	}
	return nil
}

// Document is a decoded response. Values are either a string (leaf element),
// a nested Document, or, when arrays are preserved, a []any of those.
type Document map[string]any

// String returns the text of a leaf child.
func (d Document) String(key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

// Doc returns a nested child document.
func (d Document) Doc(key string) (Document, bool) {
	doc, ok := d[key].(Document)
	return doc, ok
}

// List returns the values stored under key as a slice. A single value is
// returned as a one-element slice.
func (d Document) List(key string) []any {
	v, ok := d[key]
	if !ok {
		return nil
	}
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

// Decoder parses response bodies into Documents.
type Decoder struct {
	// PreserveArrays keeps every repeated sibling in a []any instead of
	// collapsing them to the last occurrence.
	PreserveArrays bool
}

// Decode parses body with the default Decoder.
func Decode(body []byte) *Future[Document] {
	return Decoder{}.Decode(body)
}

// Decode parses body and returns the result as a resolved Future.
func (d Decoder) Decode(body []byte) *Future[Document] {
	doc, err := d.Parse(body)
	if err != nil {
		return Rejected[Document](err)
	}
	return Resolved(doc)
}

// Parse parses body synchronously. The root element is discarded and its
// children are returned. An empty body yields an empty Document.
func (d Decoder) Parse(body []byte) (Document, error) {
	const op = "decode"

	if len(bytes.TrimSpace(body)) == 0 {
		return Document{}, nil
	}

	dec := xml.NewDecoder(bytes.NewReader(body))

	var root any
	found := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, protocolError(op, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if found {
				return nil, protocolError(op, fmt.Errorf("multiple root elements, second is <%s>", t.Name.Local))
			}
			root, err = d.element(dec, t)
			if err != nil {
				return nil, protocolError(op, err)
			}
			found = true
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, protocolError(op, errors.New("text outside of root element"))
			}
		}
	}

	if !found {
		return nil, protocolError(op, errors.New("no root element"))
	}

	switch v := root.(type) {
	case Document:
		return v, nil
	case string:
		if v == "" {
			return Document{}, nil
		}
		return Document{TextKey: v}, nil
	default:
		return Document{}, nil
	}
}

func (d Decoder) element(dec *xml.Decoder, start xml.StartElement) (any, error) {
	children := Document{}
	hasChildren := false
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("unexpected end of document inside <%s>", start.Name.Local)
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			hasChildren = true
			v, err := d.element(dec, t)
			if err != nil {
				return nil, err
			}
			d.put(children, t.Name.Local, v)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			attrs := attributes(start)
			if !hasChildren && attrs == nil {
				return text.String(), nil
			}
			if s := strings.TrimSpace(text.String()); s != "" {
				if hasChildren {
					children[TextKey] = s
				} else {
					children[TextKey] = text.String()
				}
			}
			if attrs != nil {
				children[AttrKey] = attrs
			}
			return children, nil
		}
	}
}

func (d Decoder) put(doc Document, key string, v any) {
	existing, ok := doc[key]
	if !ok || !d.PreserveArrays {
		doc[key] = v
		return
	}
	if list, isList := existing.([]any); isList {
		doc[key] = append(list, v)
		return
	}
	doc[key] = []any{existing, v}
}

func attributes(start xml.StartElement) Document {
	if len(start.Attr) == 0 {
		return nil
	}
	attrs := make(Document, len(start.Attr))
	for _, a := range start.Attr {
		attrs[a.Name.Local] = a.Value
	}
	return attrs
}
