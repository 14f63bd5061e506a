package resource

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	m "symveil.dev/pkg/symveil/internal/model"
)

// AudioMutator changes an audio container's digest by injecting metadata or
// padding without touching the audible stream. Dispatch is by container
// signature, not extension.
type AudioMutator struct {
	opts Options
}

// NewAudioMutator constructs the audio container mutator.
func NewAudioMutator(opts Options) *AudioMutator {
	return &AudioMutator{opts: opts}
}

// Family identifies the handled resource family.
func (am *AudioMutator) Family() m.ResourceFamily { return m.FamilyAudio }

// CanProcess accepts the common audio extensions; the real dispatch happens
// on the container signature in Process.
func (am *AudioMutator) CanProcess(path m.Path) bool {
	switch strings.ToLower(filepath.Ext(string(path))) {
	case ".mp3", ".wav", ".m4a", ".aac", ".caf", ".flac", ".ogg":
		return true
	}

	return false
}

// Process dispatches on the container signature and writes the mutated
// container to dst.
func (am *AudioMutator) Process(ctx context.Context, src, dst m.Path, _ NameLookup) m.ResourceResult {
	if err := ctx.Err(); err != nil {
		return fallbackResult(src, dst, m.FamilyAudio, err)
	}

	data, err := os.ReadFile(string(src))
	if err != nil {
		return fallbackResult(src, dst, m.FamilyAudio, err)
	}

	rng := rngFor(am.opts.Seed, src)

	out, container, err := mutateAudioData(data, rng, am.opts.AllowTrailing)
	if err != nil {
		return fallbackResult(src, dst, m.FamilyAudio, err)
	}

	if am.opts.Verify {
		if err := verifyAudio(out, container); err != nil {
			return fallbackResult(src, dst, m.FamilyAudio, fmt.Errorf("integrity check: %w", err))
		}
	}

	if err := writeOutput(dst, out); err != nil {
		return fallbackResult(src, dst, m.FamilyAudio, err)
	}

	return m.ResourceResult{
		Path:    src,
		Family:  m.FamilyAudio,
		Success: true,
		Message: "container mutated",
		Details: map[string]string{"container": container},
	}
}

// mutateAudioData picks the format-specific mutation by signature.
func mutateAudioData(data []byte, rng *rand.Rand, allowTrailing bool) ([]byte, string, error) {
	switch {
	case isMP3(data):
		return prependID3(data, randomComment(rng)), "mp3", nil
	case isWAV(data):
		out, err := padWAV(data, 64+rng.Intn(192))
		return out, "wav", err
	case isMP4(data):
		out, err := insertFreeBox(data, 64+rng.Intn(192), rng)
		return out, "m4a", err
	case allowTrailing:
		// Containers such as FLAC and Ogg tolerate trailing junk.
		pad := make([]byte, 32+rng.Intn(96))
		rng.Read(pad)

		return append(append([]byte{}, data...), pad...), "trailing", nil
	default:
		return nil, "", fmt.Errorf("unrecognized audio container")
	}
}

func isMP3(data []byte) bool {
	if bytes.HasPrefix(data, []byte("ID3")) {
		return true
	}

	// Bare MPEG frame sync: 11 set bits.
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

func isMP4(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp"))
}

// prependID3 builds a spec-compliant ID3v2.3 tag holding one COMM frame and
// prepends it. Existing tags are unaffected: readers process tags in order.
func prependID3(data []byte, comment string) []byte {
	// COMM frame body: text encoding (ISO-8859-1), language, empty short
	// description, then the comment text.
	body := append([]byte{0x00, 'e', 'n', 'g', 0x00}, []byte(comment)...)

	frame := make([]byte, 10+len(body))
	copy(frame, "COMM")
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(body)))
	// frame[8:10] flags stay zero
	copy(frame[10:], body)

	header := make([]byte, 10)
	copy(header, "ID3")
	header[3] = 3 // v2.3.0
	putSynchsafe(header[6:10], uint32(len(frame)))

	out := make([]byte, 0, len(header)+len(frame)+len(data))
	out = append(out, header...)
	out = append(out, frame...)
	out = append(out, data...)

	return out
}

// putSynchsafe stores a 28-bit size as four 7-bit bytes, high bit clear.
func putSynchsafe(dst []byte, v uint32) {
	dst[0] = byte(v >> 21 & 0x7F)
	dst[1] = byte(v >> 14 & 0x7F)
	dst[2] = byte(v >> 7 & 0x7F)
	dst[3] = byte(v & 0x7F)
}

func readSynchsafe(src []byte) uint32 {
	return uint32(src[0]&0x7F)<<21 | uint32(src[1]&0x7F)<<14 | uint32(src[2]&0x7F)<<7 | uint32(src[3]&0x7F)
}

// padWAV appends silent sample bytes to the data chunk and rewrites the
// RIFF and data chunk sizes so the container stays internally consistent.
// Only files whose data chunk is last are padded in place; anything else is
// rejected rather than risking a corrupt layout.
func padWAV(data []byte, pad int) ([]byte, error) {
	offset := 12

	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		bodyStart := offset + 8
		bodyEnd := bodyStart + chunkSize

		if chunkID == "data" {
			if bodyEnd > len(data) {
				return nil, fmt.Errorf("data chunk size %d exceeds file", chunkSize)
			}

			// Allow for the odd-size pad byte after the final chunk.
			if bodyEnd+chunkSize%2 < len(data) {
				return nil, fmt.Errorf("data chunk is not the final chunk")
			}

			out := make([]byte, 0, len(data)+pad)
			out = append(out, data[:bodyEnd]...)
			out = append(out, make([]byte, pad)...) // silence

			binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
			binary.LittleEndian.PutUint32(out[offset+4:offset+8], uint32(chunkSize+pad))

			return out, nil
		}

		offset = bodyEnd + chunkSize%2
	}

	return nil, fmt.Errorf("no data chunk found")
}

// insertFreeBox injects a `free` box right after the ftyp box, the
// atom/box-based analogue of tag injection.
func insertFreeBox(data []byte, size int, rng *rand.Rand) ([]byte, error) {
	ftypSize := int(binary.BigEndian.Uint32(data[0:4]))
	if ftypSize < 8 || ftypSize > len(data) {
		return nil, fmt.Errorf("invalid ftyp box size %d", ftypSize)
	}

	box := make([]byte, 8+size)
	binary.BigEndian.PutUint32(box[0:4], uint32(len(box)))
	copy(box[4:8], "free")
	rng.Read(box[8:])

	out := make([]byte, 0, len(data)+len(box))
	out = append(out, data[:ftypSize]...)
	out = append(out, box...)
	out = append(out, data[ftypSize:]...)

	return out, nil
}

// verifyAudio re-parses the mutated container, gated by the Verify option.
func verifyAudio(data []byte, container string) error {
	switch container {
	case "mp3":
		if !bytes.HasPrefix(data, []byte("ID3")) || len(data) < 10 {
			return fmt.Errorf("missing ID3 header")
		}

		tagSize := readSynchsafe(data[6:10])
		if int(tagSize)+10 > len(data) {
			return fmt.Errorf("tag size %d exceeds file", tagSize)
		}
	case "wav":
		if !isWAV(data) {
			return fmt.Errorf("RIFF header lost")
		}

		riffSize := int(binary.LittleEndian.Uint32(data[4:8]))
		if riffSize != len(data)-8 {
			return fmt.Errorf("RIFF size %d inconsistent with file length %d", riffSize, len(data))
		}
	case "m4a":
		offset := 0

		for offset+8 <= len(data) {
			boxSize := int(binary.BigEndian.Uint32(data[offset : offset+4]))
			if boxSize < 8 || offset+boxSize > len(data) {
				return fmt.Errorf("bad box size %d at offset %d", boxSize, offset)
			}

			offset += boxSize
		}

		if offset != len(data) {
			return fmt.Errorf("box walk ended at %d of %d", offset, len(data))
		}
	}

	return nil
}

func randomComment(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"

	buf := make([]byte, 12+rng.Intn(12))
	for i := range buf {
		buf[i] = letters[rng.Intn(len(letters))]
	}

	return string(buf)
}
