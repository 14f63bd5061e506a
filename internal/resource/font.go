package resource

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	m "symveil.dev/pkg/symveil/internal/model"
)

// FontMutator rewrites the human-readable naming entries of an SFNT font
// (TrueType or OpenType) in place and repairs the container's checksums so
// the file remains well formed.
type FontMutator struct {
	opts Options
}

// NewFontMutator constructs the font mutator.
func NewFontMutator(opts Options) *FontMutator {
	return &FontMutator{opts: opts}
}

// Family identifies the handled resource family.
func (fm *FontMutator) Family() m.ResourceFamily { return m.FamilyFont }

// CanProcess accepts SFNT container extensions.
func (fm *FontMutator) CanProcess(path m.Path) bool {
	switch strings.ToLower(filepath.Ext(string(path))) {
	case ".ttf", ".otf":
		return true
	}

	return false
}

// Process rewrites the family, full and PostScript name records, then fixes
// the name table checksum and head.checkSumAdjustment.
func (fm *FontMutator) Process(ctx context.Context, src, dst m.Path, _ NameLookup) m.ResourceResult {
	if err := ctx.Err(); err != nil {
		return fallbackResult(src, dst, m.FamilyFont, err)
	}

	data, err := os.ReadFile(string(src))
	if err != nil {
		return fallbackResult(src, dst, m.FamilyFont, err)
	}

	arena := append([]byte{}, data...)
	rng := rngFor(fm.opts.Seed, src)

	newName := syntheticFontName(rng)

	rewritten, err := rewriteFontNames(arena, newName)
	if err != nil {
		if errors.Is(err, errNoNameTable) {
			// A font without naming metadata has nothing to anonymize.
			if copyErr := copyThrough(src, dst); copyErr != nil {
				return fallbackResult(src, dst, m.FamilyFont, copyErr)
			}

			return m.ResourceResult{
				Path:    src,
				Family:  m.FamilyFont,
				Success: true,
				Message: "no name table, copied unchanged",
			}
		}

		return fallbackResult(src, dst, m.FamilyFont, err)
	}

	if err := repairChecksums(arena); err != nil {
		return fallbackResult(src, dst, m.FamilyFont, err)
	}

	if fm.opts.Verify {
		if sum := wholeFileChecksum(arena); sum != 0xB1B0AFBA {
			return fallbackResult(src, dst, m.FamilyFont, fmt.Errorf("file checksum 0x%08X after repair", sum))
		}
	}

	if err := writeOutput(dst, arena); err != nil {
		return fallbackResult(src, dst, m.FamilyFont, err)
	}

	return m.ResourceResult{
		Path:    src,
		Family:  m.FamilyFont,
		Success: true,
		Message: "name records rewritten",
		Details: map[string]string{"name": newName, "records": fmt.Sprintf("%d", rewritten)},
	}
}

// errNoNameTable marks fonts that carry no naming metadata at all.
var errNoNameTable = errors.New("no name table")

type tableRecord struct {
	tag      string
	checkPos int
	offset   int
	length   int
}

// parseTables reads the SFNT table directory.
func parseTables(data []byte) ([]tableRecord, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("file too small for sfnt header")
	}

	version := binary.BigEndian.Uint32(data[0:4])
	if version != 0x00010000 && version != 0x4F54544F && version != 0x74727565 {
		return nil, fmt.Errorf("unsupported sfnt version 0x%08X", version)
	}

	numTables := int(binary.BigEndian.Uint16(data[4:6]))

	records := make([]tableRecord, 0, numTables)

	for i := 0; i < numTables; i++ {
		base := 12 + i*16
		if base+16 > len(data) {
			return nil, fmt.Errorf("table directory truncated")
		}

		rec := tableRecord{
			tag:      string(data[base : base+4]),
			checkPos: base + 4,
			offset:   int(binary.BigEndian.Uint32(data[base+8 : base+12])),
			length:   int(binary.BigEndian.Uint32(data[base+12 : base+16])),
		}

		if rec.offset+rec.length > len(data) {
			return nil, fmt.Errorf("table %q extends past end of file", rec.tag)
		}

		records = append(records, rec)
	}

	return records, nil
}

func findTable(records []tableRecord, tag string) (tableRecord, bool) {
	for _, rec := range records {
		if rec.tag == tag {
			return rec, true
		}
	}

	return tableRecord{}, false
}

// rewriteFontNames replaces the string payloads of name IDs 1 (family),
// 4 (full name) and 6 (PostScript name) in place, keeping each record's
// byte length fixed by padding with the encoding's space character.
func rewriteFontNames(data []byte, newName string) (int, error) {
	records, err := parseTables(data)
	if err != nil {
		return 0, err
	}

	name, ok := findTable(records, "name")
	if !ok {
		return 0, errNoNameTable
	}

	table := data[name.offset : name.offset+name.length]
	if len(table) < 6 {
		return 0, fmt.Errorf("name table truncated")
	}

	count := int(binary.BigEndian.Uint16(table[2:4]))
	stringOffset := int(binary.BigEndian.Uint16(table[4:6]))

	rewritten := 0

	for i := 0; i < count; i++ {
		rec := table[6+i*12 : 6+i*12+12]
		platformID := binary.BigEndian.Uint16(rec[0:2])
		nameID := binary.BigEndian.Uint16(rec[6:8])
		length := int(binary.BigEndian.Uint16(rec[8:10]))
		offset := int(binary.BigEndian.Uint16(rec[10:12]))

		switch nameID {
		case 1, 4, 6:
		default:
			continue
		}

		start := stringOffset + offset
		if start+length > len(table) {
			return rewritten, fmt.Errorf("name record %d extends past table", i)
		}

		value := newName
		if nameID == 6 {
			// PostScript names must not contain spaces.
			value = strings.ReplaceAll(newName, " ", "")
		}

		encodeNameString(table[start:start+length], value, platformID)
		rewritten++
	}

	return rewritten, nil
}

// encodeNameString fills dst with value in the platform's string encoding,
// truncating when too long and padding with spaces when too short. Windows
// (platform 3) and Unicode (platform 0) strings are UTF-16BE; everything
// else is treated as single-byte MacRoman, for which ASCII is a subset.
func encodeNameString(dst []byte, value string, platformID uint16) {
	if platformID == 0 || platformID == 3 {
		// Even byte count regardless of the incoming record length.
		n := len(dst) / 2

		runes := []rune(value)

		for i := 0; i < n; i++ {
			ch := uint16(' ')
			if i < len(runes) && runes[i] < 0x10000 {
				ch = uint16(runes[i])
			}

			binary.BigEndian.PutUint16(dst[i*2:i*2+2], ch)
		}

		return
	}

	for i := range dst {
		if i < len(value) {
			dst[i] = value[i]
		} else {
			dst[i] = ' '
		}
	}
}

// tableChecksum is the big-endian 32-bit word sum over the table, zero
// padded to a word boundary.
func tableChecksum(data []byte) uint32 {
	var sum uint32

	for i := 0; i < len(data); i += 4 {
		var word uint32

		for j := 0; j < 4; j++ {
			word <<= 8

			if i+j < len(data) {
				word |= uint32(data[i+j])
			}
		}

		sum += word
	}

	return sum
}

// wholeFileChecksum sums the file as 32-bit words including the head
// table's checkSumAdjustment field.
func wholeFileChecksum(data []byte) uint32 {
	return tableChecksum(data)
}

// repairChecksums recomputes each table's directory checksum and then the
// head table's checkSumAdjustment so that adding it to the whole-file word
// sum yields the SFNT magic constant.
func repairChecksums(data []byte) error {
	records, err := parseTables(data)
	if err != nil {
		return err
	}

	head, ok := findTable(records, "head")
	if !ok {
		return fmt.Errorf("no head table")
	}

	if head.length < 12 {
		return fmt.Errorf("head table truncated")
	}

	adjustPos := head.offset + 8

	// The adjustment field is excluded from every checksum it influences.
	binary.BigEndian.PutUint32(data[adjustPos:adjustPos+4], 0)

	for _, rec := range records {
		sum := tableChecksum(data[rec.offset : rec.offset+rec.length])
		binary.BigEndian.PutUint32(data[rec.checkPos:rec.checkPos+4], sum)
	}

	adjustment := 0xB1B0AFBA - wholeFileChecksum(data)
	binary.BigEndian.PutUint32(data[adjustPos:adjustPos+4], adjustment)

	return nil
}

// syntheticFontName builds a plausible two-word replacement family name.
func syntheticFontName(rng *rand.Rand) string {
	first := []string{"Nova", "Orbit", "Vertex", "Quill", "Cinder", "Halcyon", "Meridian", "Aurora"}
	second := []string{"Sans", "Serif", "Display", "Text", "Mono", "Grotesk"}

	return first[rng.Intn(len(first))] + " " + second[rng.Intn(len(second))]
}
