package forensics

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"html"
	"io"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

const (
	maxRawMetadata  = 500
	maxXMPBytes     = 64 << 10
	maxTextChunkLen = 1 << 20
)

var (
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	xmpOpen      = []byte("<x:xmpmeta")
	xmpClose     = []byte("</x:xmpmeta>")
	// Properties naming the software that produced or touched the image, in
	// attribute (prefix:Name="v") or element (<prefix:Name>v<) form.
	xmpToolProperty = regexp.MustCompile(
		`(?:[A-Za-z][\w.-]*:)(CreatorTool|softwareAgent|Software|Producer|DigitalSourceType)(?:\s*=\s*"([^"]*)"|>([^<]*)<)`)
)

// softwareProperties are the XMP fields consulted, in order, when EXIF carries
// no Software tag.
var softwareProperties = []string{"XMP:CreatorTool", "XMP:Software", "XMP:softwareAgent"}

// Metadata is what the embedded metadata says about an image's origin.
type Metadata struct {
	Software      string `json:"software"`
	IsAIGenerated bool   `json:"is_ai_generated"`
	IsEdited      bool   `json:"is_edited"`
	// Raw is a shortened dump of the fields that were read.
	Raw string `json:"raw,omitempty"`
}

// ScanMetadata reads EXIF tags, PNG text chunks and any XMP packet from data
// and matches their values against the signature lists. Unreadable metadata is
// treated as absent.
func ScanMetadata(data []byte, sigs *Signatures) Metadata {
	if sigs == nil {
		sigs = DefaultSignatures()
	}

	fields := make(map[string]string)
	readEXIF(data, fields)
	readPNGText(data, fields)
	readXMP(data, fields)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]string, 0, len(names))
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		values = append(values, fields[name])
		pairs = append(pairs, name+": "+fields[name])
	}
	blob := strings.Join(values, "\n")

	software := fields["Software"]
	for _, name := range softwareProperties {
		if software != "" {
			break
		}
		software, _, _ = strings.Cut(fields[name], "; ")
	}

	raw := strings.Join(pairs, "; ")
	if len(raw) > maxRawMetadata {
		raw = raw[:maxRawMetadata]
	}

	return Metadata{
		Software:      software,
		IsAIGenerated: match(blob, sigs.Generators),
		IsEdited:      match(blob, sigs.Editors),
		Raw:           raw,
	}
}

type exifWalker map[string]string

func (w exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag.Format() == tiff.StringVal {
		if s, err := tag.StringVal(); err == nil {
			w[string(name)] = strings.TrimSpace(s)
			return nil
		}
	}
	w[string(name)] = tag.String()
	return nil
}

func readEXIF(data []byte, fields map[string]string) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil || x == nil {
		return
	}
	_ = x.Walk(exifWalker(fields))
}

// readPNGText collects tEXt, zTXt and iTXt chunks keyed by their keyword.
func readPNGText(data []byte, fields map[string]string) {
	if !bytes.HasPrefix(data, pngSignature) {
		return
	}

	rest := data[len(pngSignature):]
	for len(rest) >= 12 {
		length := binary.BigEndian.Uint32(rest[:4])
		kind := string(rest[4:8])
		if uint64(length)+12 > uint64(len(rest)) {
			return
		}
		body := rest[8 : 8+length]
		rest = rest[12+length:]

		var key, text string
		var err error
		switch kind {
		case "tEXt":
			key, text, err = parseText(body)
		case "zTXt":
			key, text, err = parseCompressedText(body)
		case "iTXt":
			key, text, err = parseInternationalText(body)
		case "IEND":
			return
		default:
			continue
		}
		if err == nil && key != "" {
			fields[key] = text
		}
	}
}

func parseText(body []byte) (string, string, error) {
	key, text, ok := bytes.Cut(body, []byte{0})
	if !ok {
		return "", "", fmt.Errorf("missing keyword separator")
	}
	return string(key), string(text), nil
}

func parseCompressedText(body []byte) (string, string, error) {
	key, rest, ok := bytes.Cut(body, []byte{0})
	if !ok || len(rest) < 1 {
		return "", "", fmt.Errorf("malformed zTXt chunk")
	}
	text, err := inflate(rest[1:])
	return string(key), text, err
}

func parseInternationalText(body []byte) (string, string, error) {
	key, rest, ok := bytes.Cut(body, []byte{0})
	if !ok || len(rest) < 2 {
		return "", "", fmt.Errorf("malformed iTXt chunk")
	}
	compressed := rest[0] == 1
	rest = rest[2:]

	// Skip the language tag and the translated keyword.
	for i := 0; i < 2; i++ {
		_, after, ok := bytes.Cut(rest, []byte{0})
		if !ok {
			return "", "", fmt.Errorf("malformed iTXt chunk")
		}
		rest = after
	}

	if !compressed {
		return string(key), string(rest), nil
	}
	text, err := inflate(rest)
	return string(key), text, err
}

func inflate(data []byte) (string, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxTextChunkLen))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// readXMP stores the tool-bearing properties of the XMP packet as "XMP:<name>"
// fields, whether the packet sits in the raw file or in a PNG text chunk.
// Namespace declarations and other properties are ignored.
func readXMP(data []byte, fields map[string]string) {
	const pngXMPKey = "XML:com.adobe.xmp"

	packet, ok := fields[pngXMPKey]
	if ok {
		delete(fields, pngXMPKey)
	} else {
		packet = rawXMP(data)
	}
	if packet == "" {
		return
	}

	seen := make(map[string][]string)
	for _, m := range xmpToolProperty.FindAllStringSubmatch(packet, -1) {
		value := strings.TrimSpace(html.UnescapeString(m[2] + m[3]))
		if value != "" && !slices.Contains(seen[m[1]], value) {
			seen[m[1]] = append(seen[m[1]], value)
		}
	}
	for name, values := range seen {
		fields["XMP:"+name] = strings.Join(values, "; ")
	}
}

func rawXMP(data []byte) string {
	start := bytes.Index(data, xmpOpen)
	if start < 0 {
		return ""
	}

	packet := data[start:]
	if end := bytes.Index(packet, xmpClose); end >= 0 {
		packet = packet[:end+len(xmpClose)]
	}
	if len(packet) > maxXMPBytes {
		packet = packet[:maxXMPBytes]
	}
	return string(packet)
}
