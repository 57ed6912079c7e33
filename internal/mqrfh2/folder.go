package mqrfh2

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Folder roots understood by the codec.
const (
	FolderMCD = "mcd"
	FolderJMS = "jms"
	FolderUSR = "usr"
)

var (
	xsiNilAttr      = []byte(`xsi:nil="true"`)
	xsiNilBoundAttr = []byte(`xmlns:xsi="dummy" xsi:nil="true"`)
	xmlnsMarker     = []byte("xmlns")
)

// Element is a leaf of a folder.
type Element struct {
	Name  string
	Value string
	Nil   bool // rendered as xsi:nil="true" with no content
}

// Folder is a named, ordered list of leaf elements.
type Folder struct {
	Name     string
	Elements []Element
}

// NewFolder creates an empty folder.
func NewFolder(name string) Folder {
	return Folder{Name: name}
}

// Add appends a leaf.
func (f *Folder) Add(name, value string) {
	f.Elements = append(f.Elements, Element{Name: name, Value: value})
}

// AddNil appends a leaf marked xsi:nil.
func (f *Folder) AddNil(name string) {
	f.Elements = append(f.Elements, Element{Name: name, Nil: true})
}

// Lookup returns the first leaf with the given name.
func (f Folder) Lookup(name string) (Element, bool) {
	for _, e := range f.Elements {
		if e.Name == name {
			return e, true
		}
	}
	return Element{}, false
}

// Get returns the value of the first leaf with the given name, or "".
func (f Folder) Get(name string) string {
	e, _ := f.Lookup(name)
	return e.Value
}

// Empty reports whether the folder has no leaves.
func (f Folder) Empty() bool {
	return len(f.Elements) == 0
}

// MarshalFolder renders f as an unpadded XML element.
func MarshalFolder(f Folder) ([]byte, error) {
	if f.Name == "" {
		return nil, ErrEmptyFolderName
	}
	if !validName(f.Name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidElementName, f.Name)
	}

	var buf bytes.Buffer
	buf.WriteString("<" + f.Name + ">")
	for _, e := range f.Elements {
		if !validName(e.Name) {
			return nil, fmt.Errorf("%w: %q in folder %s", ErrInvalidElementName, e.Name, f.Name)
		}
		if e.Nil {
			buf.WriteString("<" + e.Name + ` xmlns:xsi="dummy" xsi:nil="true"></` + e.Name + ">")
			continue
		}
		buf.WriteString("<" + e.Name + ">")
		if err := xml.EscapeText(&buf, []byte(e.Value)); err != nil {
			return nil, err
		}
		buf.WriteString("</" + e.Name + ">")
	}
	buf.WriteString("</" + f.Name + ">")
	return buf.Bytes(), nil
}

// UnmarshalFolder parses a folder body. Trailing padding is ignored and
// nested elements below the leaves are skipped.
func UnmarshalFolder(body []byte) (Folder, error) {
	body = bytes.TrimRight(body, " \x00")
	body = BindXSINamespace(body)

	dec := xml.NewDecoder(bytes.NewReader(body))

	var (
		folder Folder
		cur    *Element
		text   strings.Builder
		depth  int
	)

loop:
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Folder{}, fmt.Errorf("%w: %v", ErrMalformedFolder, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				folder.Name = t.Name.Local
			case 2:
				cur = &Element{Name: t.Name.Local}
				text.Reset()
				for _, attr := range t.Attr {
					if attr.Name.Local == "nil" && attr.Value == "true" && attr.Name.Space != "xmlns" {
						cur.Nil = true
					}
				}
			}
		case xml.CharData:
			if depth == 2 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 2 && cur != nil {
				cur.Value = text.String()
				folder.Elements = append(folder.Elements, *cur)
				cur = nil
			}
			depth--
			if depth == 0 {
				break loop
			}
		}
	}

	if folder.Name == "" {
		return Folder{}, fmt.Errorf("%w: no root element", ErrMalformedFolder)
	}
	if depth != 0 {
		return Folder{}, fmt.Errorf("%w: unterminated element", ErrMalformedFolder)
	}
	return folder, nil
}

// BindXSINamespace declares a dummy xsi namespace on folders that use
// xsi:nil without declaring it, as some JMS producers do. Other input is
// returned unchanged.
func BindXSINamespace(body []byte) []byte {
	if !bytes.Contains(body, xsiNilAttr) || bytes.Contains(body, xmlnsMarker) {
		return body
	}
	return bytes.ReplaceAll(body, xsiNilAttr, xsiNilBoundAttr)
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && (r == '-' || r == '.' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}
