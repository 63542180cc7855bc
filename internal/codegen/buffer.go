package codegen

import (
	"io"
	"strings"
)

// Buffer accumulates generated source text keyed by region. Entries are
// created on first write; a region nothing was emitted into stays absent and
// produces no output at assembly time.
type Buffer struct {
	regions map[Region]*strings.Builder
}

// NewBuffer returns an empty code buffer.
func NewBuffer() *Buffer {
	return &Buffer{regions: make(map[Region]*strings.Builder)}
}

// Append adds text to the given region, creating the entry if needed.
func (b *Buffer) Append(r Region, text string) {
	sb, ok := b.regions[r]
	if !ok {
		sb = &strings.Builder{}
		b.regions[r] = sb
	}
	sb.WriteString(text)
}

// Has reports whether any text was emitted into the region.
func (b *Buffer) Has(r Region) bool {
	_, ok := b.regions[r]
	return ok
}

// Text returns the accumulated text for a region ("" if absent).
func (b *Buffer) Text(r Region) string {
	sb, ok := b.regions[r]
	if !ok {
		return ""
	}
	return sb.String()
}

// Len returns the number of regions with at least one emission.
func (b *Buffer) Len() int {
	return len(b.regions)
}

// Assemble writes all non-empty regions in assembly order, each preceded by
// a region-marker comment line. Emission order never affects the layout.
func (b *Buffer) Assemble(w io.Writer) error {
	for r := Region(0); r < numRegions; r++ {
		sb, ok := b.regions[r]
		if !ok {
			continue
		}
		if _, err := io.WriteString(w, "// region "+r.String()+"\n"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// String assembles the buffer into a string. Mostly useful in tests.
func (b *Buffer) String() string {
	var sb strings.Builder
	_ = b.Assemble(&sb)
	return sb.String()
}
