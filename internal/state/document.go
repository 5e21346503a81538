package state

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// document is the root persisted wizard state: a single "items" object.
// Key order in the file is preserved across load/save cycles because the
// edit surface displays items in catalog order.
type document struct {
	items map[string]*Item
	order []string
}

func newDocument() *document {
	return &document{items: make(map[string]*Item)}
}

// get returns the named item, or nil.
func (d *document) get(name string) *Item {
	return d.items[name]
}

// ensure returns the named item, creating an empty record (appended to the
// display order) when absent.
func (d *document) ensure(name string) *Item {
	if it, ok := d.items[name]; ok {
		return it
	}
	it := &Item{}
	d.items[name] = it
	d.order = append(d.order, name)
	return it
}

// decodeDocument parses the persisted state, recording item key order as it
// appears in the file. A file that is not a JSON object with an "items"
// object is a hard error.
func decodeDocument(data []byte) (*document, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, eris.Wrap(err, "state: malformed state file")
	}

	d := newDocument()
	itemsRaw, ok := root["items"]
	if !ok {
		return d, nil
	}

	dec := json.NewDecoder(bytes.NewReader(itemsRaw))
	tok, err := dec.Token()
	if err != nil {
		return nil, eris.Wrap(err, "state: read items")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, eris.New("state: items is not an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, eris.Wrap(err, "state: read item key")
		}
		key := keyTok.(string)

		var it Item
		if err := dec.Decode(&it); err != nil {
			return nil, eris.Wrapf(err, "state: decode item %q", key)
		}
		d.items[key] = &it
		d.order = append(d.order, key)
	}

	return d, nil
}

// encode serializes the document with items in display order.
func (d *document) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"items":{`)
	for i, name := range d.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, eris.Wrap(err, "state: encode item key")
		}
		buf.Write(key)
		buf.WriteByte(':')
		body, err := json.Marshal(d.items[name])
		if err != nil {
			return nil, eris.Wrapf(err, "state: encode item %q", name)
		}
		buf.Write(body)
	}
	buf.WriteString("}}")

	// Re-indent for a diffable file.
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, eris.Wrap(err, "state: indent document")
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
