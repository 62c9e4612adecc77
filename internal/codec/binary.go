package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"go.uber.org/multierr"

	"github.com/lc/projset/internal/log"
	"github.com/lc/projset/internal/variant"
)

// Binary layout, little-endian throughout:
//
//	"ECFG" | u32 count | count * (u32 keyLen | key | u32 valLen | value)
var binaryMagic = [4]byte{'E', 'C', 'F', 'G'}

// ReadBinary decodes a binary settings file. A value that fails to decode is
// logged, recorded in Document.Skipped and skipped; a broken frame (a length
// or key that runs past the end of the file) is fatal.
func ReadBinary(r io.Reader, path string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) < len(binaryMagic) || !bytes.Equal(data[:4], binaryMagic[:]) {
		return nil, fmt.Errorf("%s is not an ECFG file: %w", path, ErrCorruptHeader)
	}

	fr := frameReader{data: data, off: 4, path: path}
	count, err := fr.u32()
	if err != nil {
		return nil, err
	}

	doc := &Document{Version: ConfigVersion}
	for i := uint32(0); i < count; i++ {
		klen, err := fr.u32()
		if err != nil {
			return nil, err
		}
		kb, err := fr.bytes(klen)
		if err != nil {
			return nil, err
		}
		vlen, err := fr.u32()
		if err != nil {
			return nil, err
		}
		vb, err := fr.bytes(vlen)
		if err != nil {
			return nil, err
		}

		key := string(kb)
		if !utf8.ValidString(key) {
			doc.Skipped = multierr.Append(doc.Skipped, fmt.Errorf("entry %d: key is not valid UTF-8", i))
			log.Warn("codec: skipping entry with invalid key", "path", path, "index", i)
			continue
		}
		v, err := variant.Decode(vb)
		if err != nil {
			doc.Skipped = multierr.Append(doc.Skipped, fmt.Errorf("entry %d (%s): %w", i, key, err))
			log.Warn("codec: error decoding property", "path", path, "key", key, "error", err)
			continue
		}
		doc.Entries = append(doc.Entries, Entry{Key: key, Value: v})
	}
	return doc, nil
}

type frameReader struct {
	data []byte
	off  int
	path string
}

func (f *frameReader) fail(msg string) error {
	return &ParseError{Path: f.path, Offset: f.off, Msg: msg}
}

func (f *frameReader) u32() (uint32, error) {
	if len(f.data)-f.off < 4 {
		return 0, f.fail("unexpected end of file reading length")
	}
	x := binary.LittleEndian.Uint32(f.data[f.off:])
	f.off += 4
	return x, nil
}

func (f *frameReader) bytes(n uint32) ([]byte, error) {
	if uint64(len(f.data)-f.off) < uint64(n) {
		return nil, f.fail(fmt.Sprintf("field of %d bytes runs past end of file", n))
	}
	b := f.data[f.off : f.off+int(n)]
	f.off += int(n)
	return b, nil
}

// WriteBinary encodes sections into the binary format. A non-empty
// customFeatures string is stored first under CustomFeaturesKey.
func WriteBinary(w io.Writer, sections []Section, customFeatures string) error {
	count := 0
	for _, s := range sections {
		count += len(s.Entries)
	}
	if customFeatures != "" {
		count++
	}

	buf := bytes.NewBuffer(nil)
	buf.Write(binaryMagic[:])
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(count)))

	if customFeatures != "" {
		if err := writeBinaryEntry(buf, CustomFeaturesKey, variant.String(customFeatures)); err != nil {
			return err
		}
	}
	for _, s := range sections {
		for _, e := range s.Entries {
			if err := writeBinaryEntry(buf, JoinKey(s.Name, e.Key), e.Value); err != nil {
				return err
			}
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeBinaryEntry(buf *bytes.Buffer, key string, v variant.Value) error {
	enc, err := variant.Encode(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(key))))
	buf.WriteString(key)
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(enc))))
	buf.Write(enc)
	return nil
}
