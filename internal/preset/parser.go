package preset

import (
	"encoding/xml"
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"focal/internal/services"
)

const (
	rdfNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	crsNamespace = "http://ns.adobe.com/camera-raw-settings/1.0/"
)

// Parse extracts adjustment values from XMP preset data. Lightroom stores
// settings as crs-namespace attributes on rdf:Description elements; every
// Description in the document is inspected and later values win.
func Parse(data []byte) (*Preset, error) {
	p := &Preset{
		Values: make(map[Kind]float64),
		Extras: make(map[string]string),
	}

	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	sawDescription := false
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrPresetParse, "preset", "parse xmp", "malformed XMP document", err)
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Space != rdfNamespace || start.Name.Local != "Description" {
			continue
		}
		sawDescription = true
		for _, attr := range start.Attr {
			if attr.Name.Space != crsNamespace {
				continue
			}
			p.recordAttribute(attr.Name.Local, attr.Value)
		}
	}

	if !sawDescription {
		return nil, services.Wrap(services.ErrPresetParse, "preset", "parse xmp", "no rdf:Description element found", nil)
	}
	return p, nil
}

func (p *Preset) recordAttribute(name, value string) {
	if name == "Name" && p.Name == "" {
		p.Name = value
		return
	}
	kind, known := ParseKind(name)
	if !known {
		p.Extras[name] = value
		return
	}
	parsed, err := parseNumeric(value)
	if err != nil {
		p.Extras[name] = value
		return
	}
	p.Values[kind] = parsed
}

// Lightroom writes positive values with an explicit sign, e.g. "+25".
func parseNumeric(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(trimmed, "+")
	return strconv.ParseFloat(trimmed, 64)
}

// Load reads a preset from disk, transparently decrypting protected files.
// Files with the ".encrypted" extension are decrypted with the key material
// from the environment before parsing.
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "preset", "load", "preset file not found", err)
		}
		return nil, services.Wrap(services.ErrPresetParse, "preset", "load", "read preset file", err)
	}

	if strings.HasSuffix(strings.ToLower(path), encryptedExtension) {
		cipher, err := NewCipherFromEnv()
		if err != nil {
			return nil, err
		}
		data, err = cipher.Decrypt(data)
		if err != nil {
			return nil, err
		}
	}

	return Parse(data)
}
