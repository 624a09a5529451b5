// Package image serializes generated interpreters so they can be cached,
// shipped and installed without running the generator again.
package image

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/chazu/rvgen/asm"
	"github.com/chazu/rvgen/interp"
)

// FormatVersion is bumped whenever the encoding or the generated code
// changes incompatibly. It is part of every fingerprint.
const FormatVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Routine is a named routine inside the image's code.
type Routine struct {
	Name   string `cbor:"name"`
	Offset int    `cbor:"offset"`
	Size   int    `cbor:"size"`
}

// Image is a generated interpreter blob with the metadata needed to use it.
// Entry and result handler locations are offsets into Code.
type Image struct {
	Version     int       `cbor:"version"`
	ID          uuid.UUID `cbor:"id"`
	Fingerprint string    `cbor:"fingerprint"`
	Created     int64     `cbor:"created"`

	Features []string `cbor:"features"`
	Base     uint64   `cbor:"base"`
	Code     []byte   `cbor:"code"`

	Routines       []Routine        `cbor:"routines"`
	Entries        map[string]int   `cbor:"entries"`
	ResultHandlers map[string]int   `cbor:"result_handlers"`
	Notes          map[int][]string `cbor:"notes,omitempty"`
}

// FromInterpreter captures in as an image with a fresh ID.
func FromInterpreter(in *interp.Interpreter, fingerprint string) *Image {
	img := &Image{
		Version:        FormatVersion,
		ID:             uuid.New(),
		Fingerprint:    fingerprint,
		Created:        time.Now().Unix(),
		Features:       in.Features.Names(),
		Base:           in.Base,
		Code:           append([]byte(nil), in.Code...),
		Entries:        make(map[string]int),
		ResultHandlers: make(map[string]int),
		Notes:          in.Comments(),
	}
	for _, r := range in.Routines() {
		img.Routines = append(img.Routines, Routine{Name: r.Name, Offset: r.Offset, Size: r.Size})
	}
	for k, addr := range in.Entries() {
		img.Entries[k.String()] = int(addr - in.Base)
	}
	for t, addr := range in.ResultHandlers() {
		img.ResultHandlers[t.String()] = int(addr - in.Base)
	}
	return img
}

// Marshal serializes an image to canonical CBOR.
func Marshal(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// Unmarshal deserializes an image and checks it is consistent.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return &img, nil
}

// Validate checks the version and that every location lies inside Code.
func (img *Image) Validate() error {
	if img.Version != FormatVersion {
		return fmt.Errorf("image: format version %d, want %d", img.Version, FormatVersion)
	}
	if len(img.Code)%asm.InstructionSize != 0 {
		return fmt.Errorf("image: code size %d is not a whole number of instructions", len(img.Code))
	}
	inCode := func(what string, off int) error {
		if off < 0 || off >= len(img.Code) || off%asm.InstructionSize != 0 {
			return fmt.Errorf("image: %s at offset %d outside code", what, off)
		}
		return nil
	}
	for _, r := range img.Routines {
		if err := inCode(r.Name, r.Offset); err != nil {
			return err
		}
		if r.Offset+r.Size > len(img.Code) {
			return fmt.Errorf("image: routine %s overruns code", r.Name)
		}
	}
	for name, off := range img.Entries {
		if err := inCode("entry "+name, off); err != nil {
			return err
		}
	}
	for name, off := range img.ResultHandlers {
		if err := inCode("result handler "+name, off); err != nil {
			return err
		}
	}
	return nil
}

// Entry returns the absolute address of the named entry ("native",
// "java_lang_math_sqrt", ...).
func (img *Image) Entry(name string) (uint64, bool) {
	off, ok := img.Entries[name]
	if !ok {
		return 0, false
	}
	return img.Base + uint64(off), true
}

// EntryNames returns the entry names in address order.
func (img *Image) EntryNames() []string {
	names := make([]string, 0, len(img.Entries))
	for n := range img.Entries {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return img.Entries[names[i]] < img.Entries[names[j]] })
	return names
}

// WriteListing disassembles the image's code to w.
func (img *Image) WriteListing(w io.Writer) error {
	return asm.WriteListing(w, img.Base, asm.Disassemble(img.Code, img.Notes))
}

// WriteFile writes the serialized image to path.
func WriteFile(path string, img *Image) error {
	data, err := Marshal(img)
	if err != nil {
		return fmt.Errorf("image: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	return nil
}

// ReadFile reads an image written by WriteFile.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	return Unmarshal(data)
}

// fingerprintInput is everything that determines the generated code.
type fingerprintInput struct {
	Version  int           `cbor:"version"`
	Features []string      `cbor:"features"`
	Base     uint64        `cbor:"base"`
	Config   interp.Config `cbor:"config"`
}

// Fingerprint identifies the code generated for cfg and features at base.
// Equal inputs give equal fingerprints across runs.
func Fingerprint(cfg interp.Config, features asm.Features, base uint64) (string, error) {
	data, err := cborEncMode.Marshal(fingerprintInput{
		Version:  FormatVersion,
		Features: features.Names(),
		Base:     base,
		Config:   cfg,
	})
	if err != nil {
		return "", fmt.Errorf("image: fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
